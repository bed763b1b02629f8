// accountctl imports client accounts and group definitions into the record
// store, and lists what is there. Input files are JSON arrays matching the
// API shapes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/store/clients"
	"github.com/copytrade/brokerhub/internal/store/groups"
	"github.com/copytrade/brokerhub/pkg/secretstore"
)

func main() {
	var (
		storePath    = flag.String("store", getenv("BROKERHUB_STORE_DIR", "data/store"), "record store directory")
		secretKey    = flag.String("secret-key", getenv("BROKERHUB_STORE_KEY", ""), "encryption key (32 bytes base64/hex)")
		accountsFile = flag.String("accounts", "", "JSON file of client accounts to import")
		groupsFile   = flag.String("groups", "", "JSON file of groups to import")
		list         = flag.Bool("list", false, "print stored accounts and groups")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	kv, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *storePath + "/records",
		EncryptionKey: keyBytes,
	})
	if err != nil {
		fatal(err)
	}
	defer kv.Close()

	accountStore := clients.NewStore(kv)
	groupStore := groups.NewStore(kv)

	if *accountsFile != "" {
		var accts []domain.ClientAccount
		if err := readJSON(*accountsFile, &accts); err != nil {
			fatal(err)
		}
		for i := range accts {
			if err := accountStore.Put(&accts[i]); err != nil {
				fatal(err)
			}
		}
		fmt.Fprintf(os.Stderr, "imported %d accounts into %s\n", len(accts), *storePath)
	}

	if *groupsFile != "" {
		var defs []domain.Group
		if err := readJSON(*groupsFile, &defs); err != nil {
			fatal(err)
		}
		for i := range defs {
			if err := groupStore.Put(&defs[i]); err != nil {
				fatal(err)
			}
		}
		fmt.Fprintf(os.Stderr, "imported %d groups into %s\n", len(defs), *storePath)
	}

	if *list {
		accts, err := accountStore.All()
		if err != nil {
			fatal(err)
		}
		for _, a := range accts {
			fmt.Printf("account %-12s broker=%-8s name=%q capital=%.2f\n",
				a.ClientID, a.Broker, a.Name, a.Capital)
		}
		defs, err := groupStore.List()
		if err != nil {
			fatal(err)
		}
		for _, g := range defs {
			members := make([]string, 0, len(g.Members))
			for _, m := range g.Members {
				members = append(members, m.ClientID)
			}
			fmt.Printf("group   %-12s name=%q multiplier=%.2f members=[%s]\n",
				g.ID, g.Name, g.EffectiveMultiplier(), strings.Join(members, " "))
		}
	}
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
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
