package db

//SchemaVersion is the config database version this binary understands
const SchemaVersion = 4

//InitialVersion is written by a fresh schema, before any migration runs
const InitialVersion = 1

const (
	//KeyVersion holds the schema version of the file
	KeyVersion = "db-version"

	//KeyCacheLifetime holds how many minutes probed qualities stay valid
	KeyCacheLifetime = "quality-cache-persistance"
)

const configSchema = `
CREATE TABLE config (
	name TEXT PRIMARY KEY,
	intval INTEGER,
	strval TEXT
);
`

const streamerSchema = `
CREATE TABLE streamer (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	icon TEXT NOT NULL,
	favorite BOOLEAN NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX streamer_name ON streamer (name);

CREATE TABLE channel (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	favorite BOOLEAN NOT NULL DEFAULT 0,
	streamer_id INTEGER NOT NULL REFERENCES streamer(id)
);
CREATE UNIQUE INDEX channel_unique_name_url ON channel (streamer_id, name, url);
CREATE UNIQUE INDEX channel_unique_name ON channel (streamer_id, name);
CREATE UNIQUE INDEX channel_unique_url ON channel (streamer_id, url);
CREATE INDEX channel_streamer_id ON channel (streamer_id);
`

//timestamp is unix seconds
const cacheSchema = `
CREATE TABLE quality_cache (
	streamer_id INTEGER NOT NULL,
	channel_id INTEGER NOT NULL REFERENCES channel(id),
	timestamp INTEGER NOT NULL,
	name TEXT NOT NULL,
	PRIMARY KEY (streamer_id, channel_id, name)
);
`

var initialConfig = []ConfigEntry{
	{KeyVersion, IntValue(InitialVersion)},
	{"is-configured", IntValue(0)},
	{"root-width", IntValue(800)},
	{"root-height", IntValue(400)},
	{"root-xoffset", IntValue(0)},
	{"root-yoffset", IntValue(0)},
	{KeyCacheLifetime, IntValue(1440)},
	{"auto-refresh-quality", IntValue(0)},

	{"command-format", TextValue(`{livestreamer} --player="{player}" "{url}" "{quality}"`)},
	{"livestreamer-path", TextValue("")},
	{"player-path", TextValue("")},
	{"timestamp-format", TextValue("[%H:%M:%S]")},
	{"foreground-color", TextValue("#fbff00")},
	{"background-color", TextValue("#4646d9")},
	{"button-foreground-favorite", TextValue("#FF4F4F")},
	{"button-foreground-edit", TextValue("#0E38F0")},
	{"button-foreground-add", TextValue("#5EBF3B")},
	{"button-foreground-delete", TextValue("#BD0B0E")},
}

var initialStreamers = []Streamer{
	{Name: "twitch.tv", URL: "http://www.twitch.tv", Icon: "twitch.gif", Favorite: true},
}
