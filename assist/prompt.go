package assist

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/engine"
)

// MaxSampleRows is the number of result rows included in an insight prompt.
const MaxSampleRows = 50

// FormatSelection lists the selected columns grouped by table, one line per
// table in order of first appearance:
//
//	- 表 "sales_data": "region" (type: TEXT), "sales" (type: INTEGER)
func FormatSelection(selection []model.SelectedColumn) string {
	var order []string
	grouped := make(map[string][]string)
	for _, c := range selection {
		if _, ok := grouped[c.TableName]; !ok {
			order = append(order, c.TableName)
		}
		grouped[c.TableName] = append(grouped[c.TableName], fmt.Sprintf("%q (type: %s)", c.ColumnName, c.SQLType))
	}

	lines := make([]string, 0, len(order))
	for _, table := range order {
		lines = append(lines, fmt.Sprintf("- 表 %q: %s", table, strings.Join(grouped[table], ", ")))
	}
	return strings.Join(lines, "\n")
}

// SQLPrompt asks for one query answering request over the selected columns.
func SQLPrompt(selection []model.SelectedColumn, request string) string {
	return `你是一位专业的 SQL 数据分析师。你的任务是根据用户的请求和提供的数据库模式，编写一个单一、有效的 SQL 查询。

**规则:**
1.  只输出原始 SQL 查询。
2.  不要包含任何解释、markdown、代码块定界符（` + "```sql" + `）或任何非 SQL 文本。
3.  确保查询语法有效。
4.  使用提供的表名和列名。

**数据库模式:**
` + FormatSelection(selection) + `

**用户请求:**
` + request + "\n"
}

// SuggestionPrompt asks for three to five exploratory queries over the
// selected columns, streamed in the DESCRIPTION/QUERY/END protocol.
func SuggestionPrompt(selection []model.SelectedColumn) string {
	return `你是一位专业的 SQL 数据分析师。你的用户从数据库表中选择了一组列，并希望得到一些探索这些数据的想法。

以下是用户选择的列：
` + FormatSelection(selection) + `

根据这些列，请生成 3 到 5 个不同且富有洞察力的探索性 SQL 查询。这些查询应该适合业务用户，帮助他们发现数据中的趋势、聚合、关系或异常值。如果选择了多个表中的列，请优先考虑生成使用 JOIN 的查询。

重要提示：你必须以特定格式流式传输你的回复。对于每个建议，请严格遵循以下结构，不要添加任何额外的格式，例如 markdown。
1.  首先，输出描述，以 ` + "`" + descriptionMarker + "`" + ` 开头，并在其自己的行上结束。
2.  然后，输出 SQL 查询，以 ` + "`QUERY:`" + ` 开头。查询可以在多行上。
3.  在每个查询的末尾，输出一个分隔符 ` + "`" + endMarker + "`" + `，它必须在自己的行上。

例如:
DESCRIPTION: 计算每个区域的总销售额和平均利润。
QUERY: SELECT
  "region",
  SUM("sales") AS "total_sales",
  AVG("profit") AS "average_profit"
FROM "sales_data"
GROUP BY "region"
ORDER BY "total_sales" DESC;
===END_SUGGESTION===
`
}

// InsightPrompt asks for two or three bullet points about a result sample.
// The first MaxSampleRows rows are embedded as indented JSON.
func InsightPrompt(rows []engine.Row, question string) (string, error) {
	sample := rows
	if len(sample) > MaxSampleRows {
		sample = sample[:MaxSampleRows]
	}
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode data sample: %w", err)
	}

	var b strings.Builder
	b.WriteString(`你是一位专业的 SQL 数据分析师。你的任务是分析以 JSON 格式提供的数据样本，并以简洁、易于理解的自然语言总结出关键洞察。

**规则:**
1.  关注数据中的趋势、模式、异常值或有趣的关系。
2.  你的回答应该是 2-3 个项目符号点 (例如, 使用 * 或 -)。
3.  保持每个项目符号点简洁明了。
4.  直接输出洞察，不要包含任何前言或解释。
5.  使用中文进行回答。

**数据样本 (JSON 格式):**
` + "```json\n")
	b.Write(data)
	b.WriteString("\n```\n")

	if strings.TrimSpace(question) != "" {
		b.WriteString("\n**用户附加问题:**\n")
		b.WriteString(question)
		b.WriteString("\n\n**基于数据和用户问题，请提供您的关键洞察:**\n")
	} else {
		b.WriteString("\n**关键洞察:**\n")
	}
	return b.String(), nil
}

var fencePattern = regexp.MustCompile("```sql|```")

// CleanSQL removes markdown code fences and surrounding whitespace from a
// generated query.
func CleanSQL(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(strings.TrimSpace(text), ""))
}
