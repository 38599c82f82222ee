package loader

// Item is one requested script. A plain item (built with Path) goes through
// the cache; a structured item (built with File) is always loaded by
// reference.
type Item struct {
	File string
	// NoCache is the per-item flag of a structured item. It is kept for
	// callers that set it but does not change how the item is loaded.
	NoCache    *bool
	Structured bool
}

// Path returns a plain item.
func Path(p string) Item {
	return Item{File: p}
}

// Paths returns plain items for every path, in order.
func Paths(ps ...string) []Item {
	items := make([]Item, len(ps))
	for i, p := range ps {
		items[i] = Path(p)
	}
	return items
}

// File returns a structured item with an explicit per-item flag.
func File(f string, noCache bool) Item {
	return Item{File: f, NoCache: &noCache, Structured: true}
}

// Action is the decision taken for an item.
type Action int

const (
	// ActionReference loads the script by URL without touching storage.
	ActionReference Action = iota
	// ActionCached injects stored text.
	ActionCached
	// ActionFetch fetches, stores, then loads by URL.
	ActionFetch
	// ActionFetchNoStore fetches without storing, then loads by URL.
	ActionFetchNoStore
)

func (a Action) String() string {
	switch a {
	case ActionReference:
		return "reference"
	case ActionCached:
		return "cached"
	case ActionFetch:
		return "fetch"
	case ActionFetchNoStore:
		return "fetch-nostore"
	default:
		return "unknown"
	}
}

// Outcome reports what happened to one item. Err is set when the fetch or
// the activation failed; such an item was not injected.
type Outcome struct {
	Path   string
	Action Action
	Err    error
}

// Failed returns the outcomes that carry an error.
func Failed(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}
