package models

// DocumentType is the closed set of document families handled by the review workflow.
// Callers resolve it from their routing layer; it is never inferred from payload shape.
type DocumentType string

const (
	DocumentTypeKIF              DocumentType = "kif"
	DocumentTypeKUF              DocumentType = "kuf"
	DocumentTypeContract         DocumentType = "contract"
	DocumentTypeBankTransactions DocumentType = "bank-transactions"
	DocumentTypePartner          DocumentType = "partner"
)

// DocumentTypes lists every family in display order.
var DocumentTypes = []DocumentType{
	DocumentTypeKIF,
	DocumentTypeKUF,
	DocumentTypeContract,
	DocumentTypeBankTransactions,
	DocumentTypePartner,
}

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeKIF, DocumentTypeKUF, DocumentTypeContract, DocumentTypeBankTransactions, DocumentTypePartner:
		return true
	}
	return false
}

// Segment returns the REST path segment for the family.
func (t DocumentType) Segment() string {
	switch t {
	case DocumentTypeContract:
		return "contracts"
	case DocumentTypePartner:
		return "partners"
	default:
		return string(t)
	}
}

// Bucket returns the upload bucket of the family. Partners are not uploaded.
func (t DocumentType) Bucket() (Bucket, bool) {
	switch t {
	case DocumentTypeKIF:
		return BucketKIF, true
	case DocumentTypeKUF:
		return BucketKUF, true
	case DocumentTypeContract:
		return BucketContracts, true
	case DocumentTypeBankTransactions:
		return BucketTransactions, true
	}
	return "", false
}

// DocumentTypeFromSegment maps a REST path segment to its family.
func DocumentTypeFromSegment(segment string) (DocumentType, bool) {
	for _, t := range DocumentTypes {
		if t.Segment() == segment {
			return t, true
		}
	}
	return "", false
}

// Bucket is a named storage partition for uploaded source files.
type Bucket string

const (
	BucketKIF          Bucket = "kif"
	BucketKUF          Bucket = "kuf"
	BucketTransactions Bucket = "transactions"
	BucketContracts    Bucket = "contracts"
)

// Buckets lists every bucket the backend accepts.
var Buckets = []Bucket{BucketKIF, BucketKUF, BucketTransactions, BucketContracts}

// ParseBucket accepts the bucket enumeration plus the legacy "bank-transactions" alias.
func ParseBucket(name string) (Bucket, bool) {
	switch name {
	case "kif":
		return BucketKIF, true
	case "kuf":
		return BucketKUF, true
	case "transactions", "bank-transactions":
		return BucketTransactions, true
	case "contracts":
		return BucketContracts, true
	}
	return "", false
}

// DocumentType returns the family whose records are extracted from this bucket.
func (b Bucket) DocumentType() DocumentType {
	switch b {
	case BucketKUF:
		return DocumentTypeKUF
	case BucketTransactions:
		return DocumentTypeBankTransactions
	case BucketContracts:
		return DocumentTypeContract
	default:
		return DocumentTypeKIF
	}
}
