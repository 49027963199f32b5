package repository

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsOperator postgres 的 LIKE 区分大小写，改用 ILIKE；sqlite 的 LIKE 对 ASCII 本身不区分
func containsOperator(db *gorm.DB) string {
	if db != nil && db.Dialector != nil {
		switch strings.ToLower(db.Dialector.Name()) {
		case "postgres", "postgresql":
			return "ILIKE"
		}
	}
	return "LIKE"
}

// matchAny 生成“任一列包含 keyword”的条件，keyword 中的通配符按字面匹配
func matchAny(operator, keyword string, columns ...string) (string, []interface{}) {
	pattern := "%" + likeEscaper.Replace(keyword) + "%"
	var clause strings.Builder
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		if len(args) > 0 {
			clause.WriteString(" OR ")
		}
		clause.WriteString(column + " " + operator + ` ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	return clause.String(), args
}

// whereContains 为 query 追加不区分大小写的包含匹配
func whereContains(query *gorm.DB, keyword string, columns ...string) *gorm.DB {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return query
	}
	clause, args := matchAny(containsOperator(query), keyword, columns...)
	if len(args) == 0 {
		return query
	}
	return query.Where(clause, args...)
}
