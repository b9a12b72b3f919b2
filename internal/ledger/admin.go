package ledger

import (
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts a read-only SQL console over the run ledger at
// /debug/tailsql/ on mux, for ad-hoc querying of run history (spec §6
// "Run ledger query interface"), mirroring the teacher's
// db.DB.AttachAdminRoutes.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("ledger: create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://ledger.db", db.DB, &tailsql.DBOptions{
		Label: "tdf2csv run ledger",
	})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	return nil
}
