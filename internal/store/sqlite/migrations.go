package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id              TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    conversation_id TEXT,
    subject         TEXT,
    time            INTEGER NOT NULL,
    is_read         BOOLEAN DEFAULT FALSE,
    is_starred      BOOLEAN DEFAULT FALSE,
    num_attachments INTEGER DEFAULT 0,
    size            INTEGER DEFAULT 0,
    PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS message_labels (
    user_id     TEXT NOT NULL,
    message_id  TEXT NOT NULL,
    label_id    TEXT NOT NULL,
    PRIMARY KEY (user_id, message_id, label_id)
);

CREATE TABLE IF NOT EXISTS conversations (
    id              TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    subject         TEXT,
    num_messages    INTEGER DEFAULT 0,
    num_unread      INTEGER DEFAULT 0,
    num_attachments INTEGER DEFAULT 0,
    size            INTEGER DEFAULT 0,
    order_time      INTEGER DEFAULT 0,
    PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS conversation_labels (
    user_id         TEXT NOT NULL,
    conversation_id TEXT NOT NULL,
    label_id        TEXT NOT NULL,
    num_messages    INTEGER DEFAULT 0,
    num_unread      INTEGER DEFAULT 0,
    num_attachments INTEGER DEFAULT 0,
    size            INTEGER DEFAULT 0,
    context_time    INTEGER DEFAULT 0,
    PRIMARY KEY (user_id, conversation_id, label_id)
);

CREATE TABLE IF NOT EXISTS labels (
    id          TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    name        TEXT NOT NULL,
    type        TEXT,
    exclusive   BOOLEAN DEFAULT FALSE,
    color       TEXT,
    PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS unread_counters (
    user_id     TEXT NOT NULL,
    label_id    TEXT NOT NULL,
    type        TEXT NOT NULL,
    count       INTEGER DEFAULT 0,
    PRIMARY KEY (user_id, label_id, type)
);

CREATE TABLE IF NOT EXISTS sync_state (
    user_id     TEXT PRIMARY KEY,
    history_id  INTEGER,
    last_sync   INTEGER
);

CREATE TABLE IF NOT EXISTS outbox (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    kind        TEXT NOT NULL,
    ids         TEXT NOT NULL,
    params      TEXT,
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(user_id, conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_time ON messages(time DESC);
CREATE INDEX IF NOT EXISTS idx_message_labels_label ON message_labels(user_id, label_id);
CREATE INDEX IF NOT EXISTS idx_conversation_labels_label ON conversation_labels(user_id, label_id, context_time DESC);
CREATE INDEX IF NOT EXISTS idx_outbox_user ON outbox(user_id, created_at);
`
