package dblp

// searchResponse mirrors the DBLP publication search API JSON shape:
// { result: { hits: { hit: [ { info: { url } } ] } } }.
type searchResponse struct {
	Result struct {
		Hits struct {
			Hit []hit `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

type hit struct {
	Info struct {
		URL string `json:"url"`
	} `json:"info"`
}

// attemptStatus tags the outcome of a single fetch attempt. The retry
// loop dispatches on this tag rather than on caught errors.
type attemptStatus int

const (
	// attemptSuccess carries a raw BibTeX record.
	attemptSuccess attemptStatus = iota
	// attemptTransient is a retryable failure (bad status, network or
	// decode error, record fetch miss).
	attemptTransient
	// attemptAbsent means the search succeeded with zero hits. Terminal:
	// absence of a match is not a transient condition.
	attemptAbsent
)

type attemptResult struct {
	status attemptStatus
	record string
	reason string
	// exception marks exception-class transients (request build, transport,
	// JSON decode, record fetch), logged at error severity. A plain non-200
	// search status logs at warn.
	exception bool
}
