package config

const (
	setupFolderNameVar        = "SETUP_FOLDER_NAME"
	setupSheetNameVar         = "SETUP_SHEET_NAME"
	fileRequestRecipientVar   = "FILE_REQUEST_RECIPIENT"
	driveRequestsPerSecondVar = "DRIVE_REQUESTS_PER_SECOND"
	driveBurstVar             = "DRIVE_BURST"
)

type Provisioning struct {
	file *FileSettings
}

var _ ProvisioningConfig = Provisioning{}

func (p Provisioning) GetSetupFolderName() string {
	return GetEnv(setupFolderNameVar, orDefault(p.file.Setup.FolderName, "homeLogistic"))
}

func (p Provisioning) GetSetupSheetName() string {
	return GetEnv(setupSheetNameVar, orDefault(p.file.Setup.SheetName, "homeLogisticSheet"))
}

func (p Provisioning) GetFileRequestRecipient() string {
	return GetEnv(fileRequestRecipientVar, p.file.Setup.FileRequestRecipient)
}

// GetDriveRequestsPerSecond stays below Drive's 10 requests/second/user quota.
func (p Provisioning) GetDriveRequestsPerSecond() float64 {
	def := p.file.Setup.DriveRequestsPerSecond
	if def <= 0 {
		def = 8
	}
	return getEnvFloat(driveRequestsPerSecondVar, def)
}

func (p Provisioning) GetDriveBurst() int {
	def := p.file.Setup.DriveBurst
	if def <= 0 {
		def = 10
	}
	return getEnvInt(driveBurstVar, def)
}
