package outbox

const transactionRecordedSchema = `{
  "type": "object",
  "title": "TransactionRecorded",
  "properties": {
    "transaction_id": {"type": "string"},
    "cuadre_id": {"type": "string"},
    "agency_id": {"type": "string"},
    "user_id": {"type": "string"},
    "kind": {"type": "string", "enum": ["sale", "prize", "expense", "mobile_payment"]},
    "business_date": {"type": "string", "format": "date"},
    "currency": {"type": "string", "enum": ["VES", "USD"]},
    "amount": {"type": "integer", "minimum": 1},
    "system_code": {"type": "string"},
    "recorded_at": {"type": "string", "format": "date-time"}
  },
  "required": ["transaction_id", "cuadre_id", "agency_id", "user_id", "kind", "business_date", "currency", "amount", "recorded_at"],
  "additionalProperties": false
}`

const cuadreReviewedSchema = `{
  "type": "object",
  "title": "CuadreReviewed",
  "properties": {
    "cuadre_id": {"type": "string"},
    "agency_id": {"type": "string"},
    "user_id": {"type": "string"},
    "business_date": {"type": "string", "format": "date"},
    "from_status": {"type": "string", "enum": ["pending", "approved", "rejected"]},
    "status": {"type": "string", "enum": ["approved", "rejected"]},
    "reviewed_by": {"type": "string"},
    "reviewed_at": {"type": "string", "format": "date-time"},
    "observations": {"type": "string"}
  },
  "required": ["cuadre_id", "agency_id", "user_id", "business_date", "from_status", "status", "reviewed_by", "reviewed_at"],
  "additionalProperties": false
}`

const syncRequestedSchema = `{
  "type": "object",
  "title": "SyncRequested",
  "properties": {
    "request_id": {"type": "string"},
    "requested_by": {"type": "string"},
    "reason": {"type": "string"},
    "requested_at": {"type": "string", "format": "date-time"}
  },
  "required": ["request_id", "requested_by", "reason", "requested_at"],
  "additionalProperties": false
}`
