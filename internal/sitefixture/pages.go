package sitefixture

import "fmt"

const pageShell = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<header><nav><a href="/">Threadmark</a></nav></header>
%s
<footer><p>Threadmark GmbH, Berlin</p><a href="/privacy">Privacy</a></footer>
</body>
</html>`

func shell(title, main string) string {
	return fmt.Sprintf(pageShell, title, main)
}

const howItWorks = `<section class="how-section">
  <h2>How it works</h2>
  <ol class="steps">
    <li><strong>Connect your store</strong><p>Install Threadmark from the Shopify app store.</p></li>
    <li><strong>Pick your countries</strong><p>Choose where you ship and we prepare the forms.</p></li>
    <li><strong>Ship as usual</strong><p>Every parcel leaves with the right paperwork.</p></li>
  </ol>
</section>`

const benefits = `<section class="benefits-section">
  <h2>What changes for you</h2>
  <ul class="benefits-list">
    <li>Customs holds stop eating your margins.</li>
    <li>Customers get their orders days sooner.</li>
    <li>You get your evenings back.</li>
  </ul>
</section>`

const faq = `<section class="faq-section">
  <h2>Questions</h2>
  <p>Threadmark works with every Shopify plan and cancels in one click.</p>
</section>`

const trust = `<section class="trust-section">
  <p>Built by former Shopify merchants who shipped to all 27 EU countries.</p>
</section>`

func waitlist(formName, extraFields string) string {
	return fmt.Sprintf(`<section class="waitlist-section" id="waitlist">
  <h2>Join the waitlist</h2>
  <form name="%s">
    <input type="email" name="email" placeholder="you@shop.com">%s
    <button type="submit" class="btn-primary btn-lg">Join the waitlist</button>
  </form>
  <p class="form-reassurance">No spam. One email when we launch.</p>
</section>`, formName, extraFields)
}

func hero(audience, ctaHref, ctaLabel string) string {
	return fmt.Sprintf(`<section class="hero">
  <p class="hero-audience">%s</p>
  <h1>Cross-border paperwork, handled.</h1>
  <p class="hero-sub">Threadmark prepares customs forms for every order. You keep shipping.</p>
  <div class="hero-cta"><a class="btn-primary btn-lg" href="%s">%s</a></div>
</section>`, audience, ctaHref, ctaLabel)
}

func homePage() string {
	return shell("Threadmark", `<main>
<section class="hero">
  <h1>Threadmark</h1>
  <p>Customs paperwork for Shopify merchants.</p>
  <a href="/eu-merchant">For EU merchants</a>
  <a href="/mid-market">For mid-market brands</a>
</section>
</main>`)
}

func euMerchantPage() string {
	return shell("Threadmark for EU Shopify Merchants", "<main>\n"+
		hero("For EU Shopify merchants", "#waitlist", "Join the waitlist")+"\n"+
		howItWorks+"\n"+benefits+"\n"+faq+"\n"+trust+"\n"+
		waitlist("waitlist-eu-merchant", "")+"\n</main>")
}

func midMarketPage(calendarURL string) string {
	notAFit := `<section class="not-a-fit-section">
  <h2>Not a fit if</h2>
  <p>You ship fewer than fifty parcels a month.</p>
</section>`
	return shell("Threadmark for Mid-Market Brands", "<main>\n"+
		hero("For mid-market brands", calendarURL, "Book a call")+"\n"+
		howItWorks+"\n"+benefits+"\n"+notAFit+"\n"+faq+"\n"+trust+"\n"+
		waitlist("waitlist-mid-market", "\n    <input type=\"text\" name=\"name\" placeholder=\"Your name\">")+"\n</main>")
}

func thanksPage() string {
	return shell("Thanks | Threadmark", `<main>
<section class="thanks">
  <h1>You're on the list</h1>
  <a class="btn-primary" href="/">Back to the homepage</a>
</section>
</main>`)
}

func privacyPage() string {
	return shell("Privacy Policy | Threadmark", `<main>
<section class="legal">
  <h1>Privacy Policy</h1>
  <p>We store your email address until you unsubscribe.</p>
</section>
</main>`)
}

func notFoundPage() string {
	return shell("Page not found | Threadmark", `<main><section><h1>Page not found</h1></section></main>`)
}
