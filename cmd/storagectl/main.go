// Command storagectl inspects and maintains a configured storage table.
//
// Usage:
//
//	storagectl [flags] <command> [args]
//
// Commands:
//
//	version                     print build information
//	count                       print the number of records
//	get KEY                     print one record
//	find -field F -op OP -value V [-sort asc|desc]
//	                            print the matching records
//	export [-format json|yaml] [-o file]
//	                            write every record with export metadata
//	rename-field OLD NEW        move an attribute path in every record
//	purge -yes                  delete every record
//
// Storage settings come from -config (YAML) or from environment variables
// named by -env-prefix, e.g. FIELDSTORE_TYPE=sqlite FIELDSTORE_SQLITE_PATH=app.db.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "storagectl:", err)
		os.Exit(1)
	}
}
