package currency

// Currency is immutable reference data identified by its numeric id.
type Currency struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
