package model

type Document struct {
	ID         string `json:"id"`
	DeviceID   string `json:"device_id"`
	Filename   string `json:"filename"`
	FileKey    string `json:"file_key"`
	ChunkCount int    `json:"chunk_count"`
	Processed  int    `json:"processed"`
	Ctime      int64  `json:"ctime"`
}

type Device struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Ctime       int64  `json:"ctime"`
}

// Namespace returns the vector-store partition for the device. All chunk
// reads and writes for a device go through this namespace and no other.
func (d *Device) Namespace() string {
	return "device_" + d.ID
}
