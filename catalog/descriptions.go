package catalog

// DefaultDescription is shown for products without a long-form description.
const DefaultDescription = "No description available."

const (
	teeDescription    = "The Unisex mo$tvalue LOGO Tee gives a rich and structured look to the classic t-shirt and works great for layered streetwear outfits. Thanks to its durable fabric, it maintains sharp lines along the edges and lasts a long time."
	hoodieDescription = "With a large front pouch pocket and drawstrings in a matching color, this Unisex mo$tvalue LOGO Hoodie is a sure crowd-favorite. It’s soft, stylish, and perfect for cooler evenings."
)

// Descriptions maps provider product ids to their long-form description.
type Descriptions map[string]string

// DefaultDescriptions is the storefront's static description table.
func DefaultDescriptions() Descriptions {
	return Descriptions{
		"382588001": teeDescription,
		"382588002": hoodieDescription,
		"382590629": teeDescription,
		"382590612": hoodieDescription,
	}
}

func (d Descriptions) Lookup(productID string) string {
	if desc, ok := d[productID]; ok && desc != "" {
		return desc
	}
	return DefaultDescription
}
