package models

type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type KeywordEntry struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}
