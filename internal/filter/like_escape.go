package filter

import (
	"fmt"
	"strings"
)

const likeEscapeClause = "ESCAPE '\\'"

func escapeLikePattern(value string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"%", "\\%",
		"_", "\\_",
	)
	return replacer.Replace(value)
}

// buildLikeComparison matches value anywhere inside columnName.
func buildLikeComparison(dialect string, columnName string, value interface{}, caseInsensitive bool) (string, []interface{}) {
	pattern := "%" + escapeLikePattern(fmt.Sprint(value)) + "%"

	if !caseInsensitive {
		return fmt.Sprintf("%s LIKE ? %s", columnName, likeEscapeClause), []interface{}{pattern}
	}
	if dialect == "postgres" {
		return fmt.Sprintf("%s ILIKE ? %s", columnName, likeEscapeClause), []interface{}{pattern}
	}
	return fmt.Sprintf("LOWER(%s) LIKE LOWER(?) %s", columnName, likeEscapeClause), []interface{}{pattern}
}
