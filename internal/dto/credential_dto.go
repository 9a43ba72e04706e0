package dto

type GetKeysResponse struct {
	OpenRouterKey *string `json:"openRouterKey"`
	UniverMcpKey  *string `json:"univerMcpKey"`
}

// UpsertKeysRequest carries a partial update. A nil field leaves the
// stored value untouched; an empty string clears it.
type UpsertKeysRequest struct {
	UserId        string  `json:"userId" validate:"required"`
	OpenRouterKey *string `json:"openRouterKey,omitempty"`
	UniverMcpKey  *string `json:"univerMcpKey,omitempty"`
}
