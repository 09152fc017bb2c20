package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/validation"
)

type noticeKind int

const (
	noticeError noticeKind = iota
	noticeSuccess
	noticeInfo
)

const ansiReset = "\x1b[0m"

// palettes per theme: error, success, info
var palettes = map[services.Theme][3]string{
	services.ThemeLight: {"\x1b[31m", "\x1b[32m", "\x1b[90m"},
	services.ThemeDark:  {"\x1b[91m", "\x1b[92m", "\x1b[97m"},
}

var noticeIcons = [3]string{"✗", "✓", "i"}

// notify prints a one-line notice, the terminal stand-in for a toast.
func (a *App) notify(kind noticeKind, msg string) {
	line := noticeIcons[kind] + " " + msg
	if a.color {
		line = palettes[a.theme][kind] + line + ansiReset
	}
	fmt.Fprintln(a.out, line)
}

var fieldOrder = []string{validation.FieldName, validation.FieldEmail, validation.FieldPassword}

// printFieldErrors lists form errors in field order, then any other keys.
func (a *App) printFieldErrors(errs validation.FieldErrors) {
	seen := map[string]bool{}
	for _, f := range fieldOrder {
		if msg, ok := errs[f]; ok {
			a.notify(noticeError, fmt.Sprintf("%s: %s", f, msg))
			seen[f] = true
		}
	}

	var rest []string
	for f := range errs {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	for _, f := range rest {
		a.notify(noticeError, fmt.Sprintf("%s: %s", f, errs[f]))
	}
}

// printTable writes rows as a borderless, left-aligned table.
func printTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(rows)
	table.Render()
}
