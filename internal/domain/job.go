package domain

// IngestionJob describe un paquete de datos listo para analizar.
// Lo crea el consumidor de la cola; es inmutable y puede reentregarse.
type IngestionJob struct {
	PackageID         string            `json:"packageID"`
	UserID            string            `json:"userID"`
	ConsentTokenID    string            `json:"consentTokenID,omitempty"`
	RawDataReference  string            `json:"rawDataReference"`
	DataType          string            `json:"dataType"`
	SourceDescription string            `json:"sourceDescription,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	SQSMessageID      string            `json:"sqsMessageId,omitempty"` // solo correlacion en logs
}
