// symload loads the instrument master from a CSV export into the local
// symbol database. Expected columns:
//
//	symbol,exchange,dhan_id,motilal_token,min_lot
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/symbols"
)

func main() {
	var (
		dbPath = flag.String("db", getenv("BROKERHUB_SYMBOLS_DB", "data/symbols.db"), "symbol database path")
		inPath = flag.String("in", "symbols.csv", "input CSV file")
	)
	flag.Parse()

	f, err := os.Open(*inPath)
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	db, err := symbols.Open(*dbPath)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5

	loaded := 0
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal(err)
		}
		// Tolerate a header row.
		if first && strings.EqualFold(rec[0], "symbol") {
			first = false
			continue
		}
		first = false

		minLot, err := strconv.Atoi(strings.TrimSpace(rec[4]))
		if err != nil || minLot < 1 {
			minLot = 1
		}
		ref := &domain.SymbolRef{
			Symbol:       strings.TrimSpace(rec[0]),
			Exchange:     strings.TrimSpace(rec[1]),
			DhanID:       strings.TrimSpace(rec[2]),
			MotilalToken: strings.TrimSpace(rec[3]),
			MinLot:       minLot,
		}
		if ref.Symbol == "" {
			continue
		}
		if err := db.Put(ref); err != nil {
			fatal(err)
		}
		loaded++
	}

	fmt.Fprintf(os.Stderr, "loaded %d symbols into %s\n", loaded, *dbPath)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
