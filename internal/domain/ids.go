package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Espacio de nombres propio para IDs deterministas (UUIDv5).
var idNamespace = uuid.MustParse("8f1c0c2e-58be-4c4f-9d3a-6b1f4a2f7c10")

// NewCandidateID deriva un ID estable de (usuario, paquete, rasgo), asi la
// reentrega del mismo job produce el mismo candidato y el upsert relacional
// lo absorbe en vez de duplicar filas.
func NewCandidateID(userID, packageID, traitName string) string {
	return uuid.NewSHA1(idNamespace, []byte(userID+"|"+packageID+"|"+traitName)).String()
}

// NewTraitID deriva la clave estable del nodo Trait en el PKG. No incluye
// el paquete: el mismo rasgo del mismo usuario es siempre el mismo nodo.
func NewTraitID(userID, traitName string) string {
	return uuid.NewSHA1(idNamespace, []byte(userID+"|"+traitName)).String()
}

// NewFeatureSetID deriva el ID estable de un feature set a partir del
// paquete, el modelo y la modalidad; la reentrega sobreescribe el mismo
// documento.
func NewFeatureSetID(packageID, modelID, modality string) string {
	return uuid.NewSHA1(idNamespace, []byte(packageID+"|"+modelID+"|"+modality)).String()
}

// NewEvidenceKey es la clave determinista del nodo Evidence: hash del
// contenido mas su origen.
func NewEvidenceKey(content, sourceDetail string) string {
	sum := sha256.Sum256([]byte(content + "|" + sourceDetail))
	return hex.EncodeToString(sum[:])
}

// NormalizeConceptName es la clave del nodo Concept: nombre en minusculas
// con espacios colapsados.
func NormalizeConceptName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
