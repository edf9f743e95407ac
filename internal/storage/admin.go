package storage

import (
	"fmt"
	"log"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts a live SQL debugging surface over this
// writer's database, the same tailsql-over-tsweb shape used to expose
// the radar database for interactive inspection.
func (w *DatabaseWriter) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("storage: failed to create tailsql server: %v", err)
	}
	tsql.SetDB(fmt.Sprintf("postgres://%s", w.tableName), w.db, &tailsql.DBOptions{
		Label: "Telemetry DB",
	})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
}
