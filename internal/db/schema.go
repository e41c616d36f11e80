package db

// SchemaSQL contains the database schema initialization SQL.
// Sessions exclusively own their messages: deleting a session cascades via
// the message_session index cleanup in DeleteSession, not via back-pointers.
const SchemaSQL = `
    -- ==========================================================================
    -- SESSION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS session SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS owner_id ON session TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS content_type ON session TYPE string;
    DEFINE FIELD IF NOT EXISTS content_source ON session TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS content_url ON session TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS content_body ON session TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS metadata ON session TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS state ON session TYPE string
        ASSERT $value IN ["initialized", "processing", "debating", "completed", "failed", "cancelled"];
    DEFINE FIELD IF NOT EXISTS failure_reason ON session TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS consensus_reached ON session TYPE option<bool>;
    DEFINE FIELD IF NOT EXISTS final_recommendation ON session TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS confidence_score ON session TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS started_at ON session TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON session TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS session_state ON session FIELDS state;
    DEFINE INDEX IF NOT EXISTS session_started ON session FIELDS started_at;

    -- ==========================================================================
    -- MESSAGE TABLE (append-only debate log)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session ON message TYPE record<session>;
    DEFINE FIELD IF NOT EXISTS role ON message TYPE string
        ASSERT $value IN ["financial_analyst", "market_context", "risk_challenger", "system_orchestrator"];
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON message TYPE option<float>
        ASSERT $value = NONE OR ($value >= 0.0 AND $value <= 1.0);
    -- "ord" because ORDER is a reserved word
    DEFINE FIELD IF NOT EXISTS ord ON message TYPE int;
    DEFINE FIELD IF NOT EXISTS citations ON message TYPE array DEFAULT [];
    DEFINE FIELD IF NOT EXISTS created_at ON message TYPE datetime DEFAULT time::now();

    -- Unique (session, ord) backstops the transactional order assignment:
    -- two racing appends can never land the same order value.
    DEFINE INDEX IF NOT EXISTS message_session_ord ON message FIELDS session, ord UNIQUE;

    -- ==========================================================================
    -- SIGNAL TABLE (citation registry)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS signal SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS symbol ON signal TYPE string;
    DEFINE FIELD IF NOT EXISTS kind ON signal TYPE string;
    DEFINE FIELD IF NOT EXISTS strength ON signal TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS summary ON signal TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS updated_at ON signal TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS signal_symbol ON signal FIELDS symbol;
`
