package repositories

import (
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Record is a human readable view of one stored key.
type Record struct {
	Key       string
	Kind      string
	Timestamp string
	ID        string
	Detail    string
}

// DescribeRecord decodes a raw key/value pair written by the repositories.
func DescribeRecord(key string, value []byte) Record {
	record := Record{Key: key, Kind: "RAW", Timestamp: "-", ID: "-"}
	switch {
	case strings.HasPrefix(key, "msg:"):
		m, err := unmarshalMessage(value)
		if err != nil {
			record.Detail = "undecodable message: " + err.Error()
			return record
		}
		record.Kind = "MESSAGE"
		record.Timestamp = m.CreatedAt.Format(time.DateTime)
		record.ID = m.ID.String()
		record.Detail = string(m.Type) + " " + m.SenderID + " -> " + m.ReceiverID + ": " + m.Content
	case strings.HasPrefix(key, userEmailPrefix):
		u, err := unmarshalUser(value)
		if err != nil {
			record.Detail = "undecodable user: " + err.Error()
			return record
		}
		record.Kind = "USER"
		record.Timestamp = u.CreatedAt.Format(time.DateTime)
		record.ID = u.ID
		record.Detail = u.Name + " <" + u.Email + ">"
	case strings.HasPrefix(key, userIDPrefix):
		record.Kind = "USER_ID"
		record.ID = strings.TrimPrefix(key, userIDPrefix)
		record.Detail = string(value)
	}
	return record
}

// Dump calls fn for every record under prefix, in key order.
func Dump(db *badger.DB, prefix string, fn func(Record) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := string(item.Key())
			var record Record
			if err := item.Value(func(v []byte) error {
				record = DescribeRecord(key, v)
				return nil
			}); err != nil {
				return err
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	})
}
