// Package dataaccess define el contrato con la fachada externa que resuelve
// metadatos de paquetes, descifra blobs y extrae texto plano. Este servicio
// no implementa cifrado ni parsing de formatos; solo consume la fachada.
package dataaccess

import "context"

// PackageMetadata describe un paquete de datos registrado.
type PackageMetadata struct {
	PackageID  string `json:"packageID"`
	UserID     string `json:"userID"`
	StorageURI string `json:"storageURI"`
	MimeType   string `json:"mimeType"`
	Filename   string `json:"filename,omitempty"`
	SizeBytes  int64  `json:"sizeBytes,omitempty"`
}

// Facade es el colaborador externo de acceso a datos. Un resultado nil sin
// error significa "no encontrado / no extraible"; el orquestador decide la
// politica por etapa.
type Facade interface {
	FetchPackageMetadata(ctx context.Context, packageID string) (*PackageMetadata, error)
	RetrieveAndDecrypt(ctx context.Context, meta *PackageMetadata) ([]byte, error)
	ExtractText(ctx context.Context, data []byte, mimeType, filename string) (string, error)
}
