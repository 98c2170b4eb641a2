package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS locations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    kind        TEXT NOT NULL DEFAULT 'shop',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS suppliers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'driver',
    location_id   INTEGER REFERENCES locations(id),
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS vehicles (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    registration        TEXT NOT NULL UNIQUE,
    make                TEXT NOT NULL DEFAULT '',
    model               TEXT NOT NULL DEFAULT '',
    kilometers_traveled INTEGER NOT NULL DEFAULT 0,
    active_trip_id      INTEGER,
    created_at          TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS requests (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id     INTEGER NOT NULL REFERENCES locations(id),
    requested_by    INTEGER NOT NULL REFERENCES users(id),
    quantity_bags   INTEGER NOT NULL,
    fulfilled_bags  INTEGER NOT NULL DEFAULT 0,
    urgency         TEXT NOT NULL DEFAULT 'normal',
    requested_time  TEXT,
    status          TEXT NOT NULL DEFAULT 'pending',
    accepted_by     INTEGER REFERENCES users(id),
    accepted_at     TEXT,
    proposed_by     INTEGER REFERENCES users(id),
    proposed_time   TEXT,
    proposal_reason TEXT NOT NULL DEFAULT '',
    proposal_notes  TEXT NOT NULL DEFAULT '',
    trip_id         INTEGER,
    cancel_reason   TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    closed_at       TEXT
);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_location ON requests(location_id);

CREATE TABLE IF NOT EXISTS request_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id  INTEGER NOT NULL REFERENCES requests(id),
    status      TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_request_history ON request_history(request_id);

CREATE TABLE IF NOT EXISTS trips (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    vehicle_id         INTEGER NOT NULL REFERENCES vehicles(id),
    driver_id          INTEGER NOT NULL REFERENCES users(id),
    origin_supplier_id INTEGER REFERENCES suppliers(id),
    origin_location_id INTEGER REFERENCES locations(id),
    dest_location_id   INTEGER NOT NULL REFERENCES locations(id),
    request_id         INTEGER REFERENCES requests(id),
    loan_id            INTEGER,
    loan_leg           TEXT NOT NULL DEFAULT '',
    status             TEXT NOT NULL DEFAULT 'planned',
    odometer_start     INTEGER,
    odometer_end       INTEGER,
    estimated_arrival  TEXT,
    costs              REAL NOT NULL DEFAULT 0,
    notes              TEXT NOT NULL DEFAULT '',
    cancel_reason      TEXT NOT NULL DEFAULT '',
    started_at         TEXT,
    completed_at       TEXT,
    created_at         TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    updated_at         TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_trips_status ON trips(status);
CREATE INDEX IF NOT EXISTS idx_trips_vehicle ON trips(vehicle_id);

CREATE TABLE IF NOT EXISTS trip_stops (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    trip_id      INTEGER NOT NULL REFERENCES trips(id),
    seq          INTEGER NOT NULL,
    stop_type    TEXT NOT NULL DEFAULT 'dropoff',
    location_id  INTEGER NOT NULL REFERENCES locations(id),
    planned_bags INTEGER NOT NULL DEFAULT 0,
    actual_kg    REAL,
    completed    INTEGER NOT NULL DEFAULT 0,
    arrived_at   TEXT,
    completed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_trip_stops ON trip_stops(trip_id, seq);

CREATE TABLE IF NOT EXISTS trip_history (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    trip_id    INTEGER NOT NULL REFERENCES trips(id),
    status     TEXT NOT NULL,
    detail     TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_trip_history ON trip_history(trip_id);

CREATE TABLE IF NOT EXISTS deliveries (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    trip_id          INTEGER NOT NULL REFERENCES trips(id),
    stop_id          INTEGER REFERENCES trip_stops(id),
    dest_location_id INTEGER NOT NULL REFERENCES locations(id),
    claimed_kg       REAL NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    confirmed_kg     REAL,
    notes            TEXT NOT NULL DEFAULT '',
    confirmed_by     INTEGER REFERENCES users(id),
    confirmed_at     TEXT,
    created_at       TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status);
CREATE INDEX IF NOT EXISTS idx_deliveries_trip ON deliveries(trip_id);

CREATE TABLE IF NOT EXISTS loans (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    borrower_location_id INTEGER NOT NULL REFERENCES locations(id),
    lender_location_id   INTEGER NOT NULL REFERENCES locations(id),
    requested_by         INTEGER NOT NULL REFERENCES users(id),
    requested_bags       INTEGER NOT NULL,
    approved_bags        INTEGER,
    status               TEXT NOT NULL DEFAULT 'pending',
    estimated_return     TEXT,
    reject_reason        TEXT NOT NULL DEFAULT '',
    cancel_reason        TEXT NOT NULL DEFAULT '',
    pickup_driver_id     INTEGER REFERENCES users(id),
    return_driver_id     INTEGER REFERENCES users(id),
    pickup_trip_id       INTEGER REFERENCES trips(id),
    return_trip_id       INTEGER REFERENCES trips(id),
    created_at           TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    closed_at            TEXT
);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);

CREATE TABLE IF NOT EXISTS loan_history (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    loan_id    INTEGER NOT NULL REFERENCES loans(id),
    status     TEXT NOT NULL,
    detail     TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_loan_history ON loan_history(loan_id);

CREATE TABLE IF NOT EXISTS stock_levels (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id INTEGER NOT NULL UNIQUE REFERENCES locations(id),
    bags        INTEGER NOT NULL DEFAULT 0,
    updated_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS stock_movements (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id INTEGER NOT NULL REFERENCES locations(id),
    delta_bags  INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    ref_type    TEXT NOT NULL DEFAULT '',
    ref_id      INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_stock_movements ON stock_movements(location_id);

CREATE TABLE IF NOT EXISTS km_corrections (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    trip_id    INTEGER NOT NULL REFERENCES trips(id),
    vehicle_id INTEGER NOT NULL REFERENCES vehicles(id),
    old_km     INTEGER NOT NULL,
    new_km     INTEGER NOT NULL,
    reason     TEXT NOT NULL,
    actor      TEXT NOT NULL DEFAULT 'system',
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS outbox (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    topic      TEXT NOT NULL,
    payload    BLOB NOT NULL,
    msg_type   TEXT NOT NULL DEFAULT '',
    recipient  TEXT NOT NULL DEFAULT '',
    transport  TEXT NOT NULL DEFAULT 'kafka',
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    sent_at    TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id   INTEGER NOT NULL DEFAULT 0,
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
`
