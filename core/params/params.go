package params

import (
	"strconv"
	"waitlist-service/core/constants"

	"github.com/labstack/echo/v4"
)

type QueryParams struct {
	PageNumber int    `json:"page_number"`
	PageSize   int    `json:"page_size"`
	Search     string `json:"search"`
}

func NewQueryParams(c echo.Context) *QueryParams {
	pageNumber, err := strconv.Atoi(c.QueryParam("page_number"))
	if err != nil || pageNumber < 1 {
		pageNumber = constants.DefaultPageNumber
	}
	pageSize, err := strconv.Atoi(c.QueryParam("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	return &QueryParams{
		PageNumber: pageNumber,
		PageSize:   pageSize,
		Search:     c.QueryParam("search"),
	}
}

func (p QueryParams) Offset() int {
	return (p.PageNumber - 1) * p.PageSize
}
