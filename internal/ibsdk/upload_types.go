package ibsdk

// UploadParams describes one file to transfer
type UploadParams struct {
	FilePath    string
	Fingerprint string
	Callback    func(uploadedBytes int64, totalBytes int64)
}

// UploadAck is the remote acknowledgment of an accepted upload
type UploadAck struct {
	FilePath    string
	Fingerprint string
	Size        int64
	Message     string
}

type uploadResponse struct {
	Result  *flexBool `json:"result"`
	Message string    `json:"message"`
}
