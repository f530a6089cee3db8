package amqp

import (
	"encoding/json"
	"time"
)

// DatasetReloadMessage tells servers that a new dataset was imported.
// It carries only metadata; receivers read the records from storage.
type DatasetReloadMessage struct {
	DatasetID int64     `json:"dataset_id"`
	Source    string    `json:"source"`
	RowCount  int       `json:"row_count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetReloadMessage creates a reload message stamped with the current time
func NewDatasetReloadMessage(datasetID int64, source string, rowCount int) *DatasetReloadMessage {
	return &DatasetReloadMessage{
		DatasetID: datasetID,
		Source:    source,
		RowCount:  rowCount,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetReloadMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetReloadMessageFromJSON creates a message from JSON bytes
func DatasetReloadMessageFromJSON(data []byte) (*DatasetReloadMessage, error) {
	var msg DatasetReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
