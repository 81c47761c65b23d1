package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/bibdex/bibdex"
	"github.com/bibdex/bibdex/model"
)

// topkBuildSize is how many tallies `read` retains for later `top` calls.
const topkBuildSize = 1024

type repl struct {
	db  *bibdex.DB
	out io.Writer
}

func runREPL(db *bibdex.DB, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "bibdex version 1.0.0")
	r := &repl{db: db, out: out}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "BIB >>> ")
		if !scanner.Scan() {
			_ = db.Close()
			break
		}
		if r.execute(scanner.Text()) {
			break
		}
	}
	return scanner.Err()
}

// execute runs one command line, reporting true when the session ends.
func (r *repl) execute(line string) bool {
	args := tokenize(line)
	if len(args) == 0 {
		return false
	}
	cmd, args := args[0], args[1:]

	var err error
	switch cmd {
	case "create":
		err = r.create(args)
	case "open":
		err = r.open(args)
	case "read":
		err = r.read(args)
	case "find":
		err = r.find(args)
	case "search":
		err = r.search(args)
	case "top":
		err = r.top(args)
	case "select":
		err = r.sel(args)
	case "whoami":
		err = r.whoami(args)
	case "close":
		err = r.closeDB(args)
	case "help":
		r.help()
	case "exit":
		_ = r.db.Close()
		fmt.Fprintln(r.out, "So long...")
		return true
	default:
		fmt.Fprintf(r.out, "Command not found: %s\n", cmd)
	}
	if err != nil {
		r.report(err)
	}
	return false
}

func (r *repl) create(args []string) error {
	if len(args) != 1 {
		return &bibdex.ArgumentCountError{Expected: 1, Got: len(args), Usage: "create [name]"}
	}
	if err := r.db.Create(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Database %s is open.\n", args[0])
	return nil
}

func (r *repl) open(args []string) error {
	if len(args) != 1 {
		return &bibdex.ArgumentCountError{Expected: 1, Got: len(args), Usage: "open [name]"}
	}
	if err := r.db.Open(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Database %s is open.\n", args[0])
	return nil
}

func (r *repl) read(args []string) error {
	if len(args) != 1 {
		return &bibdex.ArgumentCountError{Expected: 1, Got: len(args), Usage: "read [xml-file]"}
	}
	if err := r.db.ReadXML(args[0]); err != nil {
		return err
	}
	if err := r.db.MakeTopK(topkBuildSize); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "READ OK")
	return nil
}

func (r *repl) find(args []string) error {
	if len(args) != 2 {
		return &bibdex.ArgumentCountError{Expected: 2, Got: len(args), Usage: "find [title|author] [keyword]"}
	}
	field, ok := model.ParseField(args[0])
	if !ok {
		return errors.Wrap(bibdex.ErrUnknownField, args[0])
	}
	matches, err := r.db.Find(args[1], field)
	if err != nil {
		return err
	}
	r.printMatches(matches)
	fmt.Fprintln(r.out, "FIND OK")
	return nil
}

func (r *repl) search(args []string) error {
	if len(args) == 0 {
		return bibdex.ErrEmptyInquiry
	}
	matches, err := r.db.Search(args)
	if err != nil {
		return err
	}
	r.printMatches(matches)
	fmt.Fprintln(r.out, "SEARCH OK")
	return nil
}

func (r *repl) top(args []string) error {
	if len(args) != 1 {
		return &bibdex.ArgumentCountError{Expected: 1, Got: len(args), Usage: "top [number]"}
	}
	k, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "top wants a number")
	}
	records, err := r.db.Top(k)
	if err != nil {
		return err
	}
	for i, rec := range records {
		fmt.Fprintf(r.out, "[%d] %s (%d)\n", i+1, rec.NameText(), rec.Count)
	}
	return nil
}

func (r *repl) sel(args []string) error {
	if len(args) != 1 {
		return &bibdex.ArgumentCountError{Expected: 1, Got: len(args), Usage: "select [title|author]"}
	}
	field, ok := model.ParseField(args[0])
	if !ok {
		return errors.Wrap(bibdex.ErrUnknownField, args[0])
	}
	if err := r.db.Select(field, r.out); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "SELECT OK")
	return nil
}

func (r *repl) whoami(args []string) error {
	if !r.db.IsOpen() {
		return bibdex.ErrDatabaseNotOpen
	}
	fmt.Fprintf(r.out, "Who am I? Database %s!\n", r.db.Name())
	return nil
}

func (r *repl) closeDB(args []string) error {
	if !r.db.IsOpen() {
		return bibdex.ErrDatabaseNotOpen
	}
	name := r.db.Name()
	if err := r.db.Close(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Database %s is closed.\n", name)
	return nil
}

func (r *repl) help() {
	lines := [][2]string{
		{"create a database", "create [name]"},
		{"open a database", "open [name]"},
		{"read from an xml file", "read [xml-file]"},
		{"list keys of a field", "select [title|author]"},
		{"find by prefix", "find [title|author] [keyword]"},
		{"fuzzy search", "search [keyword...]"},
		{"authors with top article counts", "top [number]"},
		{"name of the open database", "whoami"},
		{"close the database", "close"},
		{"end the session", "exit"},
	}
	for _, l := range lines {
		fmt.Fprintf(r.out, "%s: %s\n", l[0], l[1])
	}
}

func (r *repl) printMatches(matches []bibdex.Match) {
	for i, m := range matches {
		if m.Key == "" {
			fmt.Fprintf(r.out, "[%d] (%d, %d)\n", i+1, m.Record.Pos, m.Record.Len)
			continue
		}
		fmt.Fprintf(r.out, "[%d] (%d, %d) %s\n", i+1, m.Record.Pos, m.Record.Len, m.Key)
	}
	fmt.Fprintf(r.out, "%d record(s) found.\n", len(matches))
}

func (r *repl) report(err error) {
	fmt.Fprintln(r.out, err)
	var ac *bibdex.ArgumentCountError
	if errors.As(err, &ac) {
		fmt.Fprintf(r.out, "Format: %s.\n", ac.Usage)
	}
	switch {
	case errors.Is(err, bibdex.ErrDatabaseNotOpen):
		fmt.Fprintln(r.out, "Please open a database first.")
	case errors.Is(err, bibdex.ErrDatabaseExists):
		fmt.Fprintln(r.out, "Please just open it.")
	case errors.Is(err, bibdex.ErrAnotherDatabaseOpen):
		fmt.Fprintln(r.out, "Please close it first.")
	}
}

// tokenize splits a command line on spaces, keeping double-quoted
// arguments whole.
func tokenize(input string) []string {
	var (
		args   []string
		cur    []byte
		quoted bool
		has    bool
	)
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '"':
			quoted = !quoted
			has = true
		case c == ' ' && !quoted:
			if has {
				args = append(args, string(cur))
				cur, has = cur[:0], false
			}
		default:
			cur = append(cur, c)
			has = true
		}
	}
	if has {
		args = append(args, string(cur))
	}
	return args
}
