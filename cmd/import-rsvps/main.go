// Command import-rsvps copies NationBuilder RSVPs onto API people, events and groups.
//
// It is configured through environment variables only, see
// sync/config/defaults.yaml. It exits 1 when a cycle fails and relies on
// its supervisor to restart it.
package main

import (
	"os"

	"github.com/homemade/nbsync/cmd/internal/jobmain"
	"github.com/homemade/nbsync/sync"
)

func main() {
	os.Exit(jobmain.Run(sync.JobImportRSVPs))
}
