package journal

const Schema = `
CREATE TABLE IF NOT EXISTS signals (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	strategy TEXT NOT NULL,
	side TEXT NOT NULL,
	reason TEXT NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	pivot REAL,
	qty REAL NOT NULL,
	opened_at DATETIME NOT NULL,
	status TEXT NOT NULL,
	closed_at DATETIME,
	exit_price REAL,
	outcome TEXT,
	pnl REAL
);

CREATE INDEX IF NOT EXISTS idx_signals_closed_at ON signals(closed_at);
CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status, symbol);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	cash REAL NOT NULL,
	equity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
