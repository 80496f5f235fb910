package pgstore

import (
	"fmt"
	"strings"

	"github.com/PaulFidika/projectkit/core"
)

// args collects positional parameters.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// whereClause renders f as a WHERE clause with positional parameters.
func whereClause(f core.ProjectFilter, a *args) string {
	var conds []string
	if f.Status != "" {
		conds = append(conds, "status = "+a.add(string(f.Status)))
	}
	if f.Priority != "" {
		conds = append(conds, "priority = "+a.add(string(f.Priority)))
	}
	if f.OwnerID != "" {
		conds = append(conds, "owner_id = "+a.add(f.OwnerID))
	}
	if len(f.Tags) > 0 {
		conds = append(conds, "tags && "+a.add(f.Tags)+"::text[]")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := a.add("%" + escapeLike(s) + "%")
		conds = append(conds, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
