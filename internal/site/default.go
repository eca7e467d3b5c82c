package site

// Rule IDs referenced by the built-in assertion groups.
const (
	CheckRouteAvailable       = "route-available"
	CheckLeadFormPresent      = "lead-form-present"
	CheckHeaderNavMinimal     = "header-nav-minimal"
	CheckFooterPrivacyLink    = "footer-privacy-link"
	CheckHeroCTATarget        = "hero-cta-target"
	CheckHeroCopyConcise      = "hero-copy-concise"
	CheckPrimaryCTALarge      = "primary-cta-large"
	CheckReadableWidth        = "readable-width"
	CheckSectionRhythm        = "section-rhythm"
	CheckCTAAccentColor       = "cta-accent-color"
	CheckHowItWorksSteps      = "how-it-works-steps"
	CheckBenefitsOutcomeCopy  = "benefits-outcome-copy"
	CheckTrustAboveWaitlist   = "trust-above-waitlist"
	CheckBottomCTAReassurance = "bottom-cta-reassurance"
	CheckInternalLinksResolve = "internal-links-resolve"
)

// DefaultBaseURL is where the site's preview server listens.
const DefaultBaseURL = "http://localhost:4321"

// Default returns the reference profile for the Threadmark marketing site.
func Default() *Profile {
	page := []string{
		CheckRouteAvailable,
		CheckHeaderNavMinimal,
		CheckFooterPrivacyLink,
		CheckInternalLinksResolve,
	}
	landing := append(append([]string{}, page...),
		CheckLeadFormPresent,
		CheckHeroCTATarget,
		CheckHeroCopyConcise,
		CheckPrimaryCTALarge,
		CheckReadableWidth,
		CheckSectionRhythm,
		CheckCTAAccentColor,
		CheckHowItWorksSteps,
		CheckBenefitsOutcomeCopy,
		CheckTrustAboveWaitlist,
		CheckBottomCTAReassurance,
	)

	return &Profile{
		Name:           "threadmark",
		BaseURL:        DefaultBaseURL,
		CalendarURL:    "https://calendly.com/threadmark/intro",
		WaitlistAnchor: "#waitlist",
		ConversionGoals: map[string]Goal{
			"euMerchant": GoalWaitlist,
			"midMarket":  GoalCalendar,
		},
		Routes: []Route{
			{Path: "/", Title: "Threadmark", Checks: page},
			{
				Path:     "/eu-merchant",
				Title:    "EU Shopify Merchants",
				Audience: "euMerchant",
				Form:     &FormSpec{Name: "waitlist-eu-merchant", Fields: []string{"email"}},
				Readable: []string{".hero", ".how-section", ".faq-section", ".waitlist-section"},
				Checks:   landing,
			},
			{
				Path:     "/mid-market",
				Title:    "Mid-Market Brands",
				Audience: "midMarket",
				Form:     &FormSpec{Name: "waitlist-mid-market", Fields: []string{"email", "name"}},
				Readable: []string{".hero", ".not-a-fit-section", ".faq-section", ".waitlist-section"},
				Checks:   landing,
			},
			{
				Path:   "/thanks",
				Title:  "Thanks",
				Checks: append(append([]string{}, page...), CheckCTAAccentColor),
			},
			{Path: "/privacy", Title: "Privacy Policy", Checks: page},
			{Path: "/nonexistent-page", Status: 404, Checks: []string{CheckRouteAvailable}},
		},
	}
}
