package dto

type Question struct {
	FieldID  string `json:"field_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
