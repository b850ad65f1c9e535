package constants

// Names of the extracted product fields.
const (
	FieldTitle           = "title"
	FieldPurchaseDate    = "purchase_date"
	FieldAmount          = "amount"
	FieldStore           = "store"
	FieldOrderID         = "order_id"
	FieldRefundDeadline  = "refund_deadline"
	FieldWarrantyEndDate = "warranty_end_date"
	FieldASContact       = "as_contact"
	FieldProductCategory = "product_category"
)

// FieldNames is the fixed set of extractable fields.
var FieldNames = []string{
	FieldTitle,
	FieldPurchaseDate,
	FieldAmount,
	FieldStore,
	FieldOrderID,
	FieldRefundDeadline,
	FieldWarrantyEndDate,
	FieldASContact,
	FieldProductCategory,
}

// RequiredFields must all be present after rule extraction, otherwise the LLM is consulted.
var RequiredFields = []string{FieldTitle, FieldPurchaseDate, FieldAmount, FieldStore}

// DateFields hold calendar dates once normalized.
var DateFields = []string{FieldPurchaseDate, FieldRefundDeadline, FieldWarrantyEndDate}

// DefaultProductTitle is used when neither extractor produced a title.
const DefaultProductTitle = "미분류 제품"

// PDFPageLimit is the maximum number of PDF pages submitted to OCR.
const PDFPageLimit = 3

// IsFieldName reports whether name is one of FieldNames.
func IsFieldName(name string) bool {
	for _, f := range FieldNames {
		if f == name {
			return true
		}
	}
	return false
}
