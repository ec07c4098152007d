package request

type DateRangeRequest struct {
	From string `json:"from" validate:"required,date"`
	To   string `json:"to" validate:"required,date"`
}

type UpdateInventoryRequest struct {
	Total int `json:"total" validate:"gte=0"`
}
