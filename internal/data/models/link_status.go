package models

// LinkProbe is the outcome of requesting one internal href.
type LinkProbe struct {
	Href   string
	URL    string
	Status int

	// Err holds the transport error when no response was received.
	Err string
}

// OK reports whether the link resolved with 200.
func (p LinkProbe) OK() bool {
	return p.Err == "" && p.Status == 200
}

// LinkStatus collects the probes for every distinct internal link on a route,
// ordered by href.
type LinkStatus struct {
	Route  string
	Probes []LinkProbe
}

// Broken returns the probes that did not resolve with 200.
func (s *LinkStatus) Broken() []LinkProbe {
	if s == nil {
		return nil
	}
	var out []LinkProbe
	for _, p := range s.Probes {
		if !p.OK() {
			out = append(out, p)
		}
	}
	return out
}
