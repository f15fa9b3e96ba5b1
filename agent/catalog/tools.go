package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

const (
	ToolSearchProduct     = "search_product"
	ToolGetProductDetails = "get_product_details"
)

type SearchProductInput struct {
	Query      string `json:"query"`
	Category   string `json:"category,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type SearchProductOutput struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

type GetProductDetailsInput struct {
	ProductID string `json:"product_id"`
}

type GetProductDetailsOutput struct {
	Found   bool     `json:"found"`
	Product *Product `json:"product,omitempty"`
}

// NewTools returns the catalog tools backed by repo.
func NewTools(repo Repository) []tool.BaseTool {
	return []tool.BaseTool{
		newSearchProductTool(repo),
		newGetProductDetailsTool(repo),
	}
}

// ToolInfos collects the schema of every tool for model binding.
func ToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func newSearchProductTool(repo Repository) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchProduct,
			Desc: "Search the furniture and decor catalog. Accepts Spanish or English keywords for product type, style, color or material (sofá, seccional, comedor, madera, gris). Returns products with ID, name, price and availability.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Search keywords, e.g. 'sofá gris', 'comedor madera'.",
					Required: true,
				},
				"category": {
					Type: schema.String,
					Desc: "Optional category filter, e.g. salas, comedores, dormitorios, decoración.",
				},
				"max_results": {
					Type: schema.Integer,
					Desc: "Maximum number of products to return (default 10, max 20).",
				},
			}),
		},
		func(ctx context.Context, in *SearchProductInput) (*SearchProductOutput, error) {
			query := strings.TrimSpace(in.Query)
			if query == "" {
				return nil, errors.New("query is required")
			}
			products, err := repo.Search(ctx, SearchQuery{
				Text:       query,
				Category:   in.Category,
				MaxResults: in.MaxResults,
			})
			if err != nil {
				return nil, err
			}
			return &SearchProductOutput{Products: products, Total: len(products)}, nil
		},
	)
}

func newGetProductDetailsTool(repo Repository) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetProductDetails,
			Desc: "Get the full details of one product: description, dimensions, materials, colors and availability. Use the exact ID returned by search_product.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_id": {
					Type:     schema.String,
					Desc:     "Product ID from search_product results.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *GetProductDetailsInput) (*GetProductDetailsOutput, error) {
			p, err := repo.Get(ctx, in.ProductID)
			if errors.Is(err, ErrProductNotFound) {
				return &GetProductDetailsOutput{Found: false}, nil
			}
			if err != nil {
				return nil, err
			}
			return &GetProductDetailsOutput{Found: true, Product: p}, nil
		},
	)
}
