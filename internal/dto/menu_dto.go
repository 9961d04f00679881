package dto

// MenuItemResponse is a static navigation entry visible to the caller.
type MenuItemResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Icon string `json:"icon"`
}

// MenuPageResponse is a dynamically assigned page rendered beneath the static
// menu. External entries are opened in an overlay viewer by the client.
type MenuPageResponse struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Href     string  `json:"href"`
	Icon     *string `json:"icon"`
	External bool    `json:"external"`
}

// MenuResponse is the full navigation payload for the authenticated user.
type MenuResponse struct {
	Items []MenuItemResponse `json:"items"`
	Pages []MenuPageResponse `json:"pages"`
}
