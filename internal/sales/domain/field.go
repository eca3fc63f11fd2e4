package domain

// Field identifies a canonical SalesRecord column.
type Field int

const (
	FieldMemberID Field = iota
	FieldPurchaseDate
	FieldProductID
	FieldProductName
	FieldColorCode
	FieldColorName
	FieldSizeCode
	FieldSizeName
	FieldStoreBrandCode
	FieldStoreBrandName
	FieldBrandCode
	FieldBrandName
	FieldQuantity
	FieldAmount
	FieldStoreCode
	FieldStoreName
	FieldAssociateCode
	FieldAssociateName
	FieldSaleID
	FieldListPrice
	FieldCategory
)

// Fields lists every canonical column in output order.
var Fields = []Field{
	FieldMemberID, FieldPurchaseDate, FieldProductID, FieldProductName,
	FieldColorCode, FieldColorName, FieldSizeCode, FieldSizeName,
	FieldStoreBrandCode, FieldStoreBrandName, FieldBrandCode, FieldBrandName,
	FieldQuantity, FieldAmount, FieldStoreCode, FieldStoreName,
	FieldAssociateCode, FieldAssociateName, FieldSaleID, FieldListPrice, FieldCategory,
}

var fieldNames = map[Field]string{
	FieldMemberID:       "member_id",
	FieldPurchaseDate:   "purchase_date",
	FieldProductID:      "product_id",
	FieldProductName:    "product_name",
	FieldColorCode:      "color_code",
	FieldColorName:      "color_name",
	FieldSizeCode:       "size_code",
	FieldSizeName:       "size_name",
	FieldStoreBrandCode: "store_brand_code",
	FieldStoreBrandName: "store_brand_name",
	FieldBrandCode:      "brand_code",
	FieldBrandName:      "brand_name",
	FieldQuantity:       "quantity",
	FieldAmount:         "amount",
	FieldStoreCode:      "store_code",
	FieldStoreName:      "store_name",
	FieldAssociateCode:  "associate_code",
	FieldAssociateName:  "associate_name",
	FieldSaleID:         "sale_id",
	FieldListPrice:      "list_price",
	FieldCategory:       "category",
}

// Name returns the canonical snake_case header for f.
func (f Field) Name() string {
	return fieldNames[f]
}
