// Package sqlbuilder file: internal/adapter/fluent/sqlbuilder/template.go
package sqlbuilder

import (
	"fmt"
	"strings"

	"GridAegis/internal/core/port"
)

// renderTemplate 把谓词/表达式模板翻译为方言 SQL:
// 括号对包裹的标识符被引用，`?` 被替换为方言占位符，单引号字符串字面量原样保留。
// next 为每个占位符返回下一个参数序号；返回值中的 int 是占位符数量。
func renderTemplate(tmpl, left, right string, d Dialect, next func() int) (string, int, error) {
	var sb strings.Builder
	count := 0
	for i := 0; i < len(tmpl); {
		switch {
		case tmpl[i] == '\'':
			end := i + 1
			for end < len(tmpl) {
				if tmpl[end] == '\'' {
					if end+1 < len(tmpl) && tmpl[end+1] == '\'' {
						end += 2
						continue
					}
					break
				}
				end++
			}
			if end >= len(tmpl) {
				return "", 0, fmt.Errorf("%w: 模板中的字符串字面量未闭合: %s", port.ErrInvalidArgument, tmpl)
			}
			sb.WriteString(tmpl[i : end+1])
			i = end + 1
		case strings.HasPrefix(tmpl[i:], left):
			start := i + len(left)
			end := strings.Index(tmpl[start:], right)
			if end < 0 {
				return "", 0, fmt.Errorf("%w: 模板中的标识符未闭合: %s", port.ErrInvalidArgument, tmpl)
			}
			ident := tmpl[start : start+end]
			if strings.TrimSpace(ident) == "" {
				return "", 0, fmt.Errorf("%w: 模板中存在空标识符: %s", port.ErrInvalidArgument, tmpl)
			}
			sb.WriteString(d.QuoteIdent(ident))
			i = start + end + len(right)
		case tmpl[i] == '?':
			count++
			n := 0
			if next != nil {
				n = next()
			}
			sb.WriteString(d.Placeholder(n))
			i++
		default:
			sb.WriteByte(tmpl[i])
			i++
		}
	}
	return sb.String(), count, nil
}
