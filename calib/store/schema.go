package store

const trialSchema = `
CREATE TABLE IF NOT EXISTS trials (
    id TEXT PRIMARY KEY,
    finished INTEGER NOT NULL,
    loss REAL NOT NULL,
    seconds REAL NOT NULL,
    payload BLOB NOT NULL -- snappy-compressed JSON of calibration and result
);
CREATE INDEX IF NOT EXISTS idx_trials_loss ON trials(loss);
CREATE INDEX IF NOT EXISTS idx_trials_finished ON trials(finished);
`
