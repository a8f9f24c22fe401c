package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tuannm99/kvsql/internal/sql/executor"
)

// statementComplete reports whether buf holds a ';' outside single quotes.
// A doubled quote inside a string toggles twice and so stays quoted.
func statementComplete(buf string) bool {
	inQuote := false
	for _, r := range buf {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return true
		}
	}
	return false
}

func printResult(w io.Writer, rs executor.ResultSet) {
	switch r := rs.(type) {
	case executor.CreateTableResult:
		fmt.Fprintf(w, "CREATE TABLE %s\n", r.TableName)
	case executor.InsertResult:
		fmt.Fprintf(w, "INSERT %d\n", r.Count)
	case executor.ScanResult:
		printTable(w, r)
	default:
		fmt.Fprintf(w, "%v\n", rs)
	}
}

func printTable(w io.Writer, res executor.ScanResult) {
	cols := res.Columns

	// 1) compute widths
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = utf8.RuneCountInString(c)
	}
	cells := make([][]string, len(res.Rows))
	for r, row := range res.Rows {
		cells[r] = make([]string, len(cols))
		for i := range cols {
			s := "NULL"
			if i < len(row) {
				s = row[i].String()
			}
			cells[r][i] = s
			if n := utf8.RuneCountInString(s); n > widths[i] {
				widths[i] = n
			}
		}
	}

	printRow := func(values []string) {
		for i := range cols {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprint(w, padRight(values[i], widths[i]))
		}
		fmt.Fprintln(w)
	}

	// 2) header
	printRow(cols)

	// 3) separator ----+----
	for i := range cols {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)

	// 4) rows
	for _, row := range cells {
		printRow(row)
	}

	fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
}

func padRight(s string, w int) string {
	n := utf8.RuneCountInString(s)
	if n >= w {
		return s
	}
	return s + strings.Repeat(" ", w-n)
}
