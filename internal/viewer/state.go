package viewer

// Mode selects how highlights are presented.
type Mode string

const (
	// ModeOverlay draws highlights as view-space elements over the
	// original document.
	ModeOverlay Mode = "overlay"
	// ModeNewDocument presents a composed copy of the document with
	// highlights baked into its pages.
	ModeNewDocument Mode = "new-document"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	return m == ModeOverlay || m == ModeNewDocument
}

// ViewID names one of the two document views.
type ViewID string

const (
	ViewOriginal    ViewID = "original"
	ViewHighlighted ViewID = "highlighted"
)

// State is the controller lifecycle state.
type State string

const (
	StateNoDocument     State = "no-document"
	StateDocumentLoaded State = "document-loaded"
	StateSearched       State = "searched"
)

// NavigationState is the controller's user-visible position: the active
// global result index, the current page of each view, the pages most
// recently rendered, and the active mode. A new file load or a highlight
// clear resets it.
type NavigationState struct {
	GlobalIndex         int  `json:"global_index"`
	OriginalPage        int  `json:"original_page"`
	HighlightedPage     int  `json:"highlighted_page"`
	RenderedOriginal    int  `json:"rendered_original"`
	RenderedHighlighted int  `json:"rendered_highlighted"`
	Mode                Mode `json:"mode"`
}
