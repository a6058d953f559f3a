package sqlstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect 区分占位符写法和显式 uid 插入后的序列同步；标识符统一用双引号，sqlite 和 postgres 都认。
type Dialect struct {
	Name        string
	placeholder func(n int) string
	// syncSeq 返回显式 uid 插入后要执行的语句，空串表示不需要（sqlite 的 INTEGER PRIMARY KEY 自己跟上）。
	syncSeq func(quotedTable string) string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		placeholder: func(int) string { return "?" },
		syncSeq:     func(string) string { return "" },
	}
	// Postgres 的 serial 序列不会因为显式写入 uid 前进，要手动推到当前最大值。
	Postgres = Dialect{
		Name:        "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		syncSeq: func(t string) string {
			return fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'uid'), (SELECT MAX("uid") FROM %s))`, t, t)
		},
	}
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quote 校验并引用标识符。表名列名来自 schema 声明，但 Where 的键可能来自调用方。
func quote(ident string) (string, error) {
	if !identRe.MatchString(ident) {
		return "", fmt.Errorf("invalid identifier %q", ident)
	}
	return `"` + ident + `"`, nil
}

// builder 拼一条语句，按出现顺序编号占位符。
type builder struct {
	d    Dialect
	sb   strings.Builder
	args []any
	err  error
}

func (b *builder) raw(s string) *builder {
	b.sb.WriteString(s)
	return b
}

func (b *builder) ident(s string) *builder {
	if b.err != nil {
		return b
	}
	q, err := quote(s)
	if err != nil {
		b.err = err
		return b
	}
	b.sb.WriteString(q)
	return b
}

func (b *builder) arg(v any) *builder {
	b.args = append(b.args, normalize(v))
	b.sb.WriteString(b.d.placeholder(len(b.args)))
	return b
}

func (b *builder) String() string { return b.sb.String() }

func (d Dialect) Placeholder(n int) string { return d.placeholder(n) }
