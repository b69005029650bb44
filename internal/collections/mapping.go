package collections

import (
	"strings"
	"unicode/utf8"

	"github.com/JaimeStill/microtravel/pkg/query"
	"github.com/JaimeStill/microtravel/pkg/repository"
)

const maxNameLength = 100

var projection = query.
	NewProjectionMap("public", "collections", "c").
	Project("id", "id").
	Project("user_id", "user_id").
	Project("name", "name").
	Project("created_at", "created_at")

var defaultSort = query.SortField{Field: "name"}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

func scanCollection(s repository.Scanner) (Collection, error) {
	var c Collection
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	return c, err
}
