package store

import "time"

type OutboxMessage struct {
	ID        int64      `json:"id"`
	Topic     string     `json:"topic"`
	Payload   []byte     `json:"payload"`
	MsgType   string     `json:"msg_type"`
	Recipient string     `json:"recipient"`
	Transport string     `json:"transport"`
	Retries   int64      `json:"retries"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// EnqueueOutbox records a message for asynchronous delivery. Transport is
// "kafka" for the event stream or "mqtt" for device push.
func (db *DB) EnqueueOutbox(topic string, payload []byte, msgType, recipient, transport string) error {
	_, err := db.Exec(db.Q(`INSERT INTO outbox (topic, payload, msg_type, recipient, transport) VALUES (?, ?, ?, ?, ?)`),
		topic, payload, msgType, recipient, transport)
	return err
}

func (db *DB) PendingOutbox(limit int) ([]*OutboxMessage, error) {
	rows, err := db.Query(db.Q(`SELECT id, topic, payload, msg_type, recipient, transport, retries, created_at, sent_at FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var createdAt, sentAt any
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.Recipient, &m.Transport, &m.Retries, &createdAt, &sentAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		m.SentAt = parseTimePtr(sentAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (db *DB) MarkOutboxSent(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET sent_at=datetime('now','localtime') WHERE id=?`), id)
	return err
}

func (db *DB) BumpOutboxRetry(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET retries=retries+1 WHERE id=?`), id)
	return err
}

// PruneOutbox deletes sent messages older than the cutoff.
func (db *DB) PruneOutbox(before time.Time) (int64, error) {
	result, err := db.Exec(db.Q(`DELETE FROM outbox WHERE sent_at IS NOT NULL AND sent_at < ?`), before.Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
