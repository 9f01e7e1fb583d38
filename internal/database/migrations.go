package database

const schema = `
CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    date TEXT,
    section TEXT NOT NULL,
    body TEXT NOT NULL,
    location TEXT,
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memory_images (
    id TEXT PRIMARY KEY,
    memory_id TEXT NOT NULL,
    filename TEXT NOT NULL,
    url TEXT NOT NULL,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    alt TEXT NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS valentine_message (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    signature TEXT,
    typed_effect INTEGER NOT NULL DEFAULT 1,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_users (
    id TEXT PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_sort ON memories (sort_order);
CREATE INDEX IF NOT EXISTS idx_memory_images_memory ON memory_images (memory_id, sort_order);
`
