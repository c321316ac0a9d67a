package models

import "time"

type Ponto struct {
	ID        string
	Title     string
	CreatedAt time.Time
}
