package common

import (
	"bytes"
	"database/sql"
	"math/big"
	"strconv"
	"text/template"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	_ "github.com/mattn/go-sqlite3"

	"github.com/minepool/go-minepool/mining"
)

// DB mirrors the ticket ledger in sqlite so the in-memory ledger can be
// rebuilt after a restart and history stays queryable. The ledger is
// authoritative; the DB is written after each committed mutation.
type DB struct {
	dbh *sql.DB

	// prepared statements
	insertTicket *sql.Stmt
	markClaimed  *sql.Stmt
	updateKV     *sql.Stmt
}

var schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key STRING PRIMARY KEY,
		value STRING,
		updatedAt STRING DEFAULT CURRENT_TIMESTAMP
	);
	INSERT OR IGNORE INTO kv(key, value) VALUES('nextTicketID', '1');
	INSERT OR IGNORE INTO kv(key, value) VALUES('ticketsSold', '0');
	INSERT OR IGNORE INTO kv(key, value) VALUES('totalMinted', '0');
	INSERT OR IGNORE INTO kv(key, value) VALUES('emissionCap', '{{.EmissionCap}}');

	CREATE TABLE IF NOT EXISTS tickets (
		id INTEGER PRIMARY KEY,
		holder STRING,
		purchasedAt INTEGER,
		reward STRING,
		claimed INTEGER DEFAULT 0,
		claimedAt INTEGER,
		payout STRING
	);
`

// InitDB opens (and if needed creates) the sqlite mirror at dbPath.
func InitDB(dbPath string) (*DB, error) {
	d := DB{}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		glog.Error("Unable to open DB ", dbPath, err)
		return nil, err
	}
	d.dbh = db
	schemaBuf := new(bytes.Buffer)
	tmpl := template.Must(template.New("schema").Parse(schema))
	tmpl.Execute(schemaBuf, struct{ EmissionCap string }{mining.HardLimit.String()})
	_, err = db.Exec(schemaBuf.String())
	if err != nil {
		glog.Error("Error initializing schema ", err)
		d.Close()
		return nil, err
	}

	stmt, err := db.Prepare("INSERT INTO tickets(id, holder, purchasedAt, reward) VALUES(?, ?, ?, ?)")
	if err != nil {
		glog.Error("Unable to prepare insertTicket stmt ", err)
		d.Close()
		return nil, err
	}
	d.insertTicket = stmt

	stmt, err = db.Prepare("UPDATE tickets SET claimed=1, claimedAt=?, payout=? WHERE id=?")
	if err != nil {
		glog.Error("Unable to prepare markClaimed stmt ", err)
		d.Close()
		return nil, err
	}
	d.markClaimed = stmt

	stmt, err = db.Prepare("UPDATE kv SET value=?, updatedAt = datetime() WHERE key=?")
	if err != nil {
		glog.Error("Unable to prepare updateKV stmt ", err)
		d.Close()
		return nil, err
	}
	d.updateKV = stmt

	glog.V(DEBUG).Info("Initialized DB node")
	return &d, nil
}

// Close releases the prepared statements and the underlying handle.
func (db *DB) Close() {
	glog.V(DEBUG).Info("Closing DB")
	if db.insertTicket != nil {
		db.insertTicket.Close()
	}
	if db.markClaimed != nil {
		db.markClaimed.Close()
	}
	if db.updateKV != nil {
		db.updateKV.Close()
	}
	if db.dbh != nil {
		db.dbh.Close()
	}
}

// InsertTickets stores a freshly issued batch in one transaction.
func (db *DB) InsertTickets(tickets []*mining.Ticket) error {
	if db == nil {
		return nil
	}
	tx, err := db.dbh.Begin()
	if err != nil {
		return err
	}
	for _, t := range tickets {
		_, err := tx.Stmt(db.insertTicket).Exec(t.ID, t.Holder.Hex(), t.PurchasedAt, t.Reward.String())
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// MarkClaimed records a successful claim of a single ticket.
func (db *DB) MarkClaimed(id uint64, claimedAt int64, payout *big.Int) error {
	if db == nil {
		return nil
	}
	_, err := db.markClaimed.Exec(claimedAt, payout.String(), id)
	return err
}

// SaveState stores the global counters.
func (db *DB) SaveState(state mining.LedgerState) error {
	if db == nil {
		return nil
	}
	kvs := map[string]string{
		"nextTicketID": strconv.FormatUint(state.NextTicketID, 10),
		"ticketsSold":  strconv.FormatUint(state.TicketsSold, 10),
		"totalMinted":  state.TotalMinted.String(),
		"emissionCap":  state.EmissionCap.String(),
	}
	for key, value := range kvs {
		if _, err := db.updateKV.Exec(value, key); err != nil {
			glog.Error("db: Got err updating key ", key, err)
			return err
		}
	}
	return nil
}

// LoadState returns every stored ticket in issuance order plus the
// saved counters, for Ledger.Restore on startup.
func (db *DB) LoadState() ([]*mining.Ticket, *mining.LedgerState, error) {
	if db == nil {
		return nil, nil, nil
	}
	state := &mining.LedgerState{}
	rows, err := db.dbh.Query("SELECT key, value FROM kv")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, nil, err
		}
		switch key {
		case "nextTicketID":
			state.NextTicketID, err = strconv.ParseUint(value, 10, 64)
		case "ticketsSold":
			state.TicketsSold, err = strconv.ParseUint(value, 10, 64)
		case "totalMinted":
			state.TotalMinted, err = ParseBigInt(value)
		case "emissionCap":
			state.EmissionCap, err = ParseBigInt(value)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	trows, err := db.dbh.Query("SELECT id, holder, purchasedAt, reward, claimed FROM tickets ORDER BY id ASC")
	if err != nil {
		return nil, nil, err
	}
	defer trows.Close()
	var tickets []*mining.Ticket
	for trows.Next() {
		var (
			id          uint64
			holderHex   string
			purchasedAt int64
			rewardStr   string
			claimed     bool
		)
		if err := trows.Scan(&id, &holderHex, &purchasedAt, &rewardStr, &claimed); err != nil {
			return nil, nil, err
		}
		reward, err := ParseBigInt(rewardStr)
		if err != nil {
			return nil, nil, err
		}
		tickets = append(tickets, &mining.Ticket{
			ID:          id,
			Holder:      ethcommon.HexToAddress(holderHex),
			PurchasedAt: purchasedAt,
			Reward:      reward,
			Claimed:     claimed,
		})
	}
	if err := trows.Err(); err != nil {
		return nil, nil, err
	}

	return tickets, state, nil
}
