package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS locations (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    kind        TEXT NOT NULL DEFAULT 'shop',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS suppliers (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'driver',
    location_id   BIGINT REFERENCES locations(id),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS vehicles (
    id                  BIGSERIAL PRIMARY KEY,
    registration        TEXT NOT NULL UNIQUE,
    make                TEXT NOT NULL DEFAULT '',
    model               TEXT NOT NULL DEFAULT '',
    kilometers_traveled BIGINT NOT NULL DEFAULT 0,
    active_trip_id      BIGINT,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS requests (
    id              BIGSERIAL PRIMARY KEY,
    location_id     BIGINT NOT NULL REFERENCES locations(id),
    requested_by    BIGINT NOT NULL REFERENCES users(id),
    quantity_bags   BIGINT NOT NULL,
    fulfilled_bags  BIGINT NOT NULL DEFAULT 0,
    urgency         TEXT NOT NULL DEFAULT 'normal',
    requested_time  TIMESTAMPTZ,
    status          TEXT NOT NULL DEFAULT 'pending',
    accepted_by     BIGINT REFERENCES users(id),
    accepted_at     TIMESTAMPTZ,
    proposed_by     BIGINT REFERENCES users(id),
    proposed_time   TIMESTAMPTZ,
    proposal_reason TEXT NOT NULL DEFAULT '',
    proposal_notes  TEXT NOT NULL DEFAULT '',
    trip_id         BIGINT,
    cancel_reason   TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    closed_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_location ON requests(location_id);

CREATE TABLE IF NOT EXISTS request_history (
    id          BIGSERIAL PRIMARY KEY,
    request_id  BIGINT NOT NULL REFERENCES requests(id),
    status      TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_request_history ON request_history(request_id);

CREATE TABLE IF NOT EXISTS trips (
    id                 BIGSERIAL PRIMARY KEY,
    vehicle_id         BIGINT NOT NULL REFERENCES vehicles(id),
    driver_id          BIGINT NOT NULL REFERENCES users(id),
    origin_supplier_id BIGINT REFERENCES suppliers(id),
    origin_location_id BIGINT REFERENCES locations(id),
    dest_location_id   BIGINT NOT NULL REFERENCES locations(id),
    request_id         BIGINT REFERENCES requests(id),
    loan_id            BIGINT,
    loan_leg           TEXT NOT NULL DEFAULT '',
    status             TEXT NOT NULL DEFAULT 'planned',
    odometer_start     BIGINT,
    odometer_end       BIGINT,
    estimated_arrival  TIMESTAMPTZ,
    costs              DOUBLE PRECISION NOT NULL DEFAULT 0,
    notes              TEXT NOT NULL DEFAULT '',
    cancel_reason      TEXT NOT NULL DEFAULT '',
    started_at         TIMESTAMPTZ,
    completed_at       TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trips_status ON trips(status);
CREATE INDEX IF NOT EXISTS idx_trips_vehicle ON trips(vehicle_id);

CREATE TABLE IF NOT EXISTS trip_stops (
    id           BIGSERIAL PRIMARY KEY,
    trip_id      BIGINT NOT NULL REFERENCES trips(id),
    seq          BIGINT NOT NULL,
    stop_type    TEXT NOT NULL DEFAULT 'dropoff',
    location_id  BIGINT NOT NULL REFERENCES locations(id),
    planned_bags BIGINT NOT NULL DEFAULT 0,
    actual_kg    DOUBLE PRECISION,
    completed    INTEGER NOT NULL DEFAULT 0,
    arrived_at   TIMESTAMPTZ,
    completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_trip_stops ON trip_stops(trip_id, seq);

CREATE TABLE IF NOT EXISTS trip_history (
    id         BIGSERIAL PRIMARY KEY,
    trip_id    BIGINT NOT NULL REFERENCES trips(id),
    status     TEXT NOT NULL,
    detail     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trip_history ON trip_history(trip_id);

CREATE TABLE IF NOT EXISTS deliveries (
    id               BIGSERIAL PRIMARY KEY,
    trip_id          BIGINT NOT NULL REFERENCES trips(id),
    stop_id          BIGINT REFERENCES trip_stops(id),
    dest_location_id BIGINT NOT NULL REFERENCES locations(id),
    claimed_kg       DOUBLE PRECISION NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    confirmed_kg     DOUBLE PRECISION,
    notes            TEXT NOT NULL DEFAULT '',
    confirmed_by     BIGINT REFERENCES users(id),
    confirmed_at     TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status);
CREATE INDEX IF NOT EXISTS idx_deliveries_trip ON deliveries(trip_id);

CREATE TABLE IF NOT EXISTS loans (
    id                   BIGSERIAL PRIMARY KEY,
    borrower_location_id BIGINT NOT NULL REFERENCES locations(id),
    lender_location_id   BIGINT NOT NULL REFERENCES locations(id),
    requested_by         BIGINT NOT NULL REFERENCES users(id),
    requested_bags       BIGINT NOT NULL,
    approved_bags        BIGINT,
    status               TEXT NOT NULL DEFAULT 'pending',
    estimated_return     TIMESTAMPTZ,
    reject_reason        TEXT NOT NULL DEFAULT '',
    cancel_reason        TEXT NOT NULL DEFAULT '',
    pickup_driver_id     BIGINT REFERENCES users(id),
    return_driver_id     BIGINT REFERENCES users(id),
    pickup_trip_id       BIGINT REFERENCES trips(id),
    return_trip_id       BIGINT REFERENCES trips(id),
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    closed_at            TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);

CREATE TABLE IF NOT EXISTS loan_history (
    id         BIGSERIAL PRIMARY KEY,
    loan_id    BIGINT NOT NULL REFERENCES loans(id),
    status     TEXT NOT NULL,
    detail     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_loan_history ON loan_history(loan_id);

CREATE TABLE IF NOT EXISTS stock_levels (
    id          BIGSERIAL PRIMARY KEY,
    location_id BIGINT NOT NULL UNIQUE REFERENCES locations(id),
    bags        BIGINT NOT NULL DEFAULT 0,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS stock_movements (
    id          BIGSERIAL PRIMARY KEY,
    location_id BIGINT NOT NULL REFERENCES locations(id),
    delta_bags  BIGINT NOT NULL,
    kind        TEXT NOT NULL,
    ref_type    TEXT NOT NULL DEFAULT '',
    ref_id      BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_stock_movements ON stock_movements(location_id);

CREATE TABLE IF NOT EXISTS km_corrections (
    id         BIGSERIAL PRIMARY KEY,
    trip_id    BIGINT NOT NULL REFERENCES trips(id),
    vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
    old_km     BIGINT NOT NULL,
    new_km     BIGINT NOT NULL,
    reason     TEXT NOT NULL,
    actor      TEXT NOT NULL DEFAULT 'system',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS outbox (
    id         BIGSERIAL PRIMARY KEY,
    topic      TEXT NOT NULL,
    payload    BYTEA NOT NULL,
    msg_type   TEXT NOT NULL DEFAULT '',
    recipient  TEXT NOT NULL DEFAULT '',
    transport  TEXT NOT NULL DEFAULT 'kafka',
    retries    BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   BIGINT NOT NULL DEFAULT 0,
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
`
