package repl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/leengari/joystore"
)

// Record is the schema the demo REPL works with: free-form JSON
// objects carrying their key under "key".
type Record = map[string]any

// Start runs the interactive loop against a started store. The tables
// map holds the keyed tables registered on db before it started.
func Start(db *joystore.Database, tables map[string]*joystore.KeyedTable[Record]) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Welcome to joystore")
	fmt.Println("Type 'help' for commands, 'exit' or '\\q' to quit.")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}
		if line == "exit" || line == "\\q" {
			return
		}

		if err := execute(os.Stdout, line, db, tables); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func execute(w io.Writer, line string, db *joystore.Database, tables map[string]*joystore.KeyedTable[Record]) error {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "help":
		printHelp(w)
		return nil

	case "tables":
		printTables(w, tables)
		return nil

	case "save":
		return db.Save()

	case "get", "del", "list", "put":
		if len(fields) < 2 {
			return fmt.Errorf("usage: %s <table> ...", cmd)
		}
		table, ok := tables[fields[1]]
		if !ok {
			return fmt.Errorf("unknown table %q", fields[1])
		}

		switch cmd {
		case "list":
			printRecords(w, table)
			return nil

		case "get":
			if len(fields) != 3 {
				return fmt.Errorf("usage: get <table> <key>")
			}
			record, ok := table.Get(fields[2])
			if !ok {
				fmt.Fprintln(w, "(not found)")
				return nil
			}
			return printJSON(w, record)

		case "del":
			if len(fields) != 3 {
				return fmt.Errorf("usage: del <table> <key>")
			}
			if _, ok := table.Delete(fields[2]); !ok {
				fmt.Fprintln(w, "(not found)")
			}
			return nil

		default: // put
			if len(fields) < 4 {
				return fmt.Errorf("usage: put <table> <key> <json>")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(line, "put"))
			raw = strings.TrimSpace(strings.TrimPrefix(raw, fields[1]))
			raw = strings.TrimSpace(strings.TrimPrefix(raw, fields[2]))

			var record Record
			if err := json.Unmarshal([]byte(raw), &record); err != nil {
				return fmt.Errorf("invalid record JSON: %w", err)
			}
			table.Set(fields[2], record)
			return nil
		}

	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tables                   list registered tables")
	fmt.Fprintln(w, "  list <table>             show all records in a table")
	fmt.Fprintln(w, "  get <table> <key>        show one record")
	fmt.Fprintln(w, "  put <table> <key> <json> store a record")
	fmt.Fprintln(w, "  del <table> <key>        remove a record")
	fmt.Fprintln(w, "  save                     flush dirty state to disk")
	fmt.Fprintln(w, "  exit                     quit")
}

func printTables(w io.Writer, tables map[string]*joystore.KeyedTable[Record]) {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tRECORDS")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, tables[name].Len())
	}
	tw.Flush()
}

func printRecords(w io.Writer, table *joystore.KeyedTable[Record]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tRECORD")
	for key, record := range table.All() {
		data, err := json.Marshal(record)
		if err != nil {
			fmt.Fprintf(tw, "%s\t(unencodable: %v)\n", key, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", key, data)
	}
	tw.Flush()
}

func printJSON(w io.Writer, record Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
