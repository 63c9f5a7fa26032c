// Package errclass sorts data-service errors into the small set of kinds the
// console knows how to recover from.
package errclass

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"food-console/remote"
)

type Kind int

const (
	Other Kind = iota
	UndefinedTable
	UndefinedColumn
	PermissionDenied
	NotFound
)

func (k Kind) String() string {
	switch k {
	case UndefinedTable:
		return "undefined_table"
	case UndefinedColumn:
		return "undefined_column"
	case PermissionDenied:
		return "permission_denied"
	case NotFound:
		return "not_found"
	}
	return "other"
}

// Classification is the result of Classify. Column is only set for
// UndefinedColumn and only when the message names it.
type Classification struct {
	Kind   Kind
	Column string
	Err    error
}

const (
	codeUndefinedTable   = "42P01"
	codeUndefinedColumn  = "42703"
	codeInsufficientPriv = "42501"
	codeGatewayColumn    = "PGRST204"
	codeGatewayTable     = "PGRST205"
)

var (
	reColumnQuoted  = regexp.MustCompile(`column "([^"]+)"`)
	reColumnBare    = regexp.MustCompile(`column ([\w.]+) does not exist`)
	reGatewayColumn = regexp.MustCompile(`find the '([^']+)' column`)
	reRelation      = regexp.MustCompile(`relation "?[^"\s]+"? does not exist`)
)

type sqlStater interface {
	SQLState() string
}

// Classify never panics; a nil error is Other with a nil Err.
func Classify(err error) Classification {
	c := Classification{Kind: Other, Err: err}
	if err == nil {
		return c
	}
	if errors.Is(err, remote.ErrNotFound) || errors.Is(err, pgx.ErrNoRows) {
		c.Kind = NotFound
		return c
	}

	code := ""
	var rerr *remote.Error
	var st sqlStater
	switch {
	case errors.As(err, &rerr):
		code = rerr.Code
	case errors.As(err, &st):
		code = st.SQLState()
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case code == codeUndefinedColumn || code == codeGatewayColumn || isColumnMessage(lower):
		c.Kind = UndefinedColumn
		c.Column = columnFrom(msg)
	case code == codeUndefinedTable || code == codeGatewayTable || isTableMessage(lower):
		c.Kind = UndefinedTable
	case code == codeInsufficientPriv ||
		strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "row-level security"):
		c.Kind = PermissionDenied
	}
	return c
}

// Is reports whether err classifies as k.
func Is(err error, k Kind) bool {
	return Classify(err).Kind == k
}

func isColumnMessage(lower string) bool {
	if strings.Contains(lower, "could not find the") && strings.Contains(lower, "column") {
		return true
	}
	return strings.Contains(lower, "column") && strings.Contains(lower, "does not exist")
}

func isTableMessage(lower string) bool {
	return reRelation.MatchString(lower) || strings.Contains(lower, "could not find the table")
}

// columnFrom extracts the column name, dropping any table qualifier.
func columnFrom(msg string) string {
	var name string
	for _, re := range []*regexp.Regexp{reGatewayColumn, reColumnQuoted, reColumnBare} {
		if m := re.FindStringSubmatch(msg); m != nil {
			name = m[1]
			break
		}
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
