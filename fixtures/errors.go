package fixtures

import "errors"

var (
	// ErrInsufficientTeams — меньше двух команд, календарь невозможен.
	ErrInsufficientTeams = errors.New("not enough teams to generate fixtures (minimum 2 required)")

	// ErrUnsupportedFormat — формат лиги не поддерживается генератором.
	ErrUnsupportedFormat = errors.New("unsupported league format for fixture generation")
)
