// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/google/uuid"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
)

// ProductLookup resolves catalog products so quotes can print part and option names
type ProductLookup interface {
	Get(id string) (*product.Product, error)
}

// Service handles PDF generation
type Service struct {
	quote     config.QuoteConfig
	products  ProductLookup
	formatter *pricing.Formatter
	now       func() time.Time
}

// NewService creates a new PDF service
func NewService(cfg *config.Config, products ProductLookup) *Service {
	return &Service{
		quote:     cfg.Quote,
		products:  products,
		formatter: pricing.NewFormatter(cfg.DisplayLocale(), cfg.Pricing.CurrencySymbol),
		now:       time.Now,
	}
}

// GenerateQuote renders a cart as a PDF quote
func (s *Service) GenerateQuote(c *cart.CartResponse) (*bytes.Buffer, error) {
	htmlContent, err := s.QuoteHTML(c)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(strings.NewReader(htmlContent))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// QuoteHTML renders the quote document without converting it
func (s *Service) QuoteHTML(c *cart.CartResponse) (string, error) {
	var buf bytes.Buffer
	if err := quoteTmpl.Execute(&buf, s.quoteData(c)); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) quoteData(c *cart.CartResponse) QuoteData {
	issued := s.now()
	data := QuoteData{
		QuoteNumber: "Q-" + strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0]),
		QuoteDate:   issued.Format("02/01/2006"),
		ValidUntil:  issued.AddDate(0, 0, s.quote.ValidityDays).Format("02/01/2006"),
		Company: CompanyInfo{
			Name:    s.quote.CompanyName,
			Address: s.quote.CompanyAddress,
			Email:   s.quote.CompanyEmail,
			Website: s.quote.CompanyWebsite,
		},
		SubTotal:     s.formatter.Format(c.Totals.SubTotal),
		Shipping:     s.formatter.Format(c.Totals.ShippingCost),
		Total:        s.formatter.Format(c.Totals.TotalAmount),
		FreeShipping: c.Totals.FreeShipping,
	}

	for _, item := range c.Items {
		data.Lines = append(data.Lines, QuoteLine{
			Name:      item.Name,
			Details:   s.details(item),
			Quantity:  item.Quantity,
			UnitPrice: s.formatter.Format(item.Price),
			Total:     s.formatter.Format(item.LineTotal()),
		})
	}
	return data
}

// details lists the configured part and option names of a line
func (s *Service) details(item cart.Item) []string {
	if item.Config == nil {
		return nil
	}

	var p *product.Product
	if s.products != nil {
		p, _ = s.products.Get(item.ID)
	}

	out := make([]string, 0, len(item.Config.SelectedParts)+len(item.Config.SelectedOptions))
	for _, id := range item.Config.SelectedParts {
		name := id
		if p != nil {
			if part, ok := p.FindPart(id); ok {
				name = part.Name
			}
		}
		out = append(out, name)
	}
	for _, id := range item.Config.SelectedOptions {
		name := id
		if p != nil {
			if opt, ok := p.FindOption(id); ok {
				name = opt.Name
			}
		}
		out = append(out, name)
	}
	return out
}

// QuoteData represents the data passed to the quote template
type QuoteData struct {
	QuoteNumber  string      `json:"quote_number"`
	QuoteDate    string      `json:"quote_date"`
	ValidUntil   string      `json:"valid_until"`
	Company      CompanyInfo `json:"company"`
	Lines        []QuoteLine `json:"lines"`
	SubTotal     string      `json:"sub_total"`
	Shipping     string      `json:"shipping"`
	Total        string      `json:"total"`
	FreeShipping bool        `json:"free_shipping"`
}

// QuoteLine is one printed cart line with preformatted amounts
type QuoteLine struct {
	Name      string   `json:"name"`
	Details   []string `json:"details"`
	Quantity  int      `json:"quantity"`
	UnitPrice string   `json:"unit_price"`
	Total     string   `json:"total"`
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

var quoteTmpl = template.Must(template.New("quote").Parse(quoteTemplate))

// Quote HTML template
const quoteTemplate = `
<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="UTF-8">
    <title>Devis {{.QuoteNumber}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .header {
            display: flex;
            justify-content: space-between;
            margin-bottom: 30px;
            border-bottom: 2px solid #eee;
            padding-bottom: 20px;
        }
        .company-info {
            flex: 1;
        }
        .quote-info {
            text-align: right;
            flex: 1;
        }
        .quote-title {
            font-size: 28px;
            font-weight: bold;
            color: #2563eb;
            margin-bottom: 10px;
        }
        .items-table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 30px;
        }
        .items-table th,
        .items-table td {
            border: 1px solid #ddd;
            padding: 12px 8px;
            text-align: left;
        }
        .items-table th {
            background-color: #f8f9fa;
            font-weight: bold;
        }
        .items-table .qty-col,
        .items-table .price-col,
        .items-table .total-col {
            text-align: right;
            width: 100px;
        }
        .details {
            color: #666;
            font-size: 12px;
        }
        .totals {
            float: right;
            width: 320px;
        }
        .totals table {
            width: 100%;
            border-collapse: collapse;
        }
        .totals td {
            padding: 8px;
            border-bottom: 1px solid #eee;
        }
        .totals .label {
            text-align: right;
            font-weight: bold;
        }
        .totals .amount {
            text-align: right;
            width: 120px;
        }
        .total-row {
            font-size: 18px;
            font-weight: bold;
            border-top: 2px solid #333 !important;
        }
        .footer {
            margin-top: 50px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            text-align: center;
            color: #666;
            font-size: 12px;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            <p>{{.Company.Address}}</p>
            <p>{{.Company.Email}}</p>
            <p>{{.Company.Website}}</p>
        </div>
        <div class="quote-info">
            <div class="quote-title">DEVIS</div>
            <p><strong>N°:</strong> {{.QuoteNumber}}</p>
            <p><strong>Date:</strong> {{.QuoteDate}}</p>
            <p><strong>Valable jusqu'au:</strong> {{.ValidUntil}}</p>
        </div>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Article</th>
                <th class="qty-col">Qté</th>
                <th class="price-col">Prix unitaire</th>
                <th class="total-col">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Lines}}
            <tr>
                <td>
                    <strong>{{.Name}}</strong>
                    {{if .Details}}<div class="details">{{range $i, $d := .Details}}{{if $i}}, {{end}}{{$d}}{{end}}</div>{{end}}
                </td>
                <td class="qty-col">{{.Quantity}}</td>
                <td class="price-col">{{.UnitPrice}}</td>
                <td class="total-col">{{.Total}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr>
                <td class="label">Sous-total:</td>
                <td class="amount">{{.SubTotal}}</td>
            </tr>
            <tr>
                <td class="label">Livraison:</td>
                <td class="amount">{{if .FreeShipping}}Offerte{{else}}{{.Shipping}}{{end}}</td>
            </tr>
            <tr class="total-row">
                <td class="label">Total:</td>
                <td class="amount">{{.Total}}</td>
            </tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Merci pour votre confiance !</p>
        <p>Pour toute question concernant ce devis, contactez-nous à {{.Company.Email}}</p>
    </div>
</body>
</html>
`
