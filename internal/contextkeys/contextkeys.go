package contextkeys

// RequestIDKey — ключ, под которым middleware кладёт идентификатор запроса в gin.Context.
const RequestIDKey = "request_id"
