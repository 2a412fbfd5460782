package log

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	borp "github.com/letsencrypt/borp"

	"github.com/vqp-project/responder/core"
)

// auditRow is the relational shape one core.AuditEntry is stored as.
type auditRow struct {
	ID        int64  `db:"id"`
	Timestamp int64  `db:"timestamp"`
	Event     string `db:"event"`
	QueryID   string `db:"queryId"`
	Querier   string `db:"querier"`
	Result    string `db:"result"`
	Error     string `db:"error"`
	Metadata  string `db:"metadata"`
}

// SQLAuditPort is a core.AuditPort backed by a relational audit_log
// table, for responders that need to query their own audit history
// rather than only stream it to syslog.
type SQLAuditPort struct {
	dbMap *borp.DbMap
}

// NewSQLAuditPort opens (or reuses) a MySQL connection at dsn and
// registers the audit_log table mapping.
func NewSQLAuditPort(dsn string) (*SQLAuditPort, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("log: opening audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("log: pinging audit database: %w", err)
	}

	dbMap := &borp.DbMap{Db: db, Dialect: borp.MySQLDialect{Engine: "InnoDB", Encoding: "UTF8"}}
	dbMap.AddTableWithName(auditRow{}, "audit_log").SetKeys(true, "ID")

	return &SQLAuditPort{dbMap: dbMap}, nil
}

// CreateTablesIfNotExists provisions the audit_log schema; intended for
// test setup and first-run bootstrapping, not for migrations.
func (p *SQLAuditPort) CreateTablesIfNotExists() error {
	return p.dbMap.CreateTablesIfNotExists()
}

// Record implements core.AuditPort.
func (p *SQLAuditPort) Record(ctx context.Context, entry core.AuditEntry) error {
	resultJSON, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("log: marshaling audit result: %w", err)
	}
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("log: marshaling audit metadata: %w", err)
	}

	row := &auditRow{
		Timestamp: entry.Timestamp.UnixNano(),
		Event:     string(entry.Event),
		QueryID:   entry.QueryID,
		Querier:   entry.Querier,
		Result:    string(resultJSON),
		Error:     entry.Error,
		Metadata:  string(metaJSON),
	}
	return p.dbMap.Insert(row)
}

// Since returns every audit row recorded at or after t, oldest first.
func (p *SQLAuditPort) Since(t time.Time) ([]core.AuditEntry, error) {
	var rows []auditRow
	_, err := p.dbMap.Select(&rows, "SELECT * FROM audit_log WHERE timestamp >= ? ORDER BY timestamp ASC", t.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("log: querying audit log: %w", err)
	}

	out := make([]core.AuditEntry, 0, len(rows))
	for _, r := range rows {
		var result interface{}
		_ = json.Unmarshal([]byte(r.Result), &result)
		var metadata map[string]interface{}
		_ = json.Unmarshal([]byte(r.Metadata), &metadata)
		out = append(out, core.AuditEntry{
			Timestamp: time.Unix(0, r.Timestamp),
			Event:     core.AuditEvent(r.Event),
			QueryID:   r.QueryID,
			Querier:   r.Querier,
			Result:    result,
			Error:     r.Error,
			Metadata:  metadata,
		})
	}
	return out, nil
}
