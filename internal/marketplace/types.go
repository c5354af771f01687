package marketplace

import (
	"bytes"
	"strconv"

	"github.com/shopspring/decimal"
)

// number accepts both JSON numbers and numeric strings; seller ratings come
// back as "99.8".
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = number(f)
	return nil
}

type money struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
}

type listingResponse struct {
	ID              int64  `json:"id"`
	Status          string `json:"status"`
	Condition       string `json:"condition"`
	SleeveCondition string `json:"sleeve_condition"`
	Posted          string `json:"posted"`
	URI             string `json:"uri"`
	Comments        string `json:"comments"`
	Price           money  `json:"price"`
	ShippingPrice   *money `json:"shipping_price"`
	Seller          struct {
		Username string `json:"username"`
		Stats    struct {
			Rating number `json:"rating"`
		} `json:"stats"`
	} `json:"seller"`
	Release struct {
		ID        int    `json:"id"`
		Year      int    `json:"year"`
		Artist    string `json:"artist"`
		Title     string `json:"title"`
		Thumbnail string `json:"thumbnail"`
	} `json:"release"`
}

type artist struct {
	Name string `json:"name"`
}

type releaseResponse struct {
	ID      int      `json:"id"`
	Title   string   `json:"title"`
	Year    int      `json:"year"`
	Thumb   string   `json:"thumb"`
	Genres  []string `json:"genres"`
	Styles  []string `json:"styles"`
	Artists []artist `json:"artists"`
	Formats []struct {
		Name         string   `json:"name"`
		Descriptions []string `json:"descriptions"`
	} `json:"formats"`
	Community struct {
		Have int `json:"have"`
		Want int `json:"want"`
	} `json:"community"`
}

type priceSuggestions map[string]money

type statsResponse struct {
	Data *struct {
		Release *struct {
			Statistics map[string]*struct {
				Converted *struct {
					Amount *decimal.Decimal `json:"amount"`
				} `json:"converted"`
			} `json:"statistics"`
		} `json:"release"`
	} `json:"data"`
}

type wantsResponse struct {
	Pagination struct {
		Page  int `json:"page"`
		Pages int `json:"pages"`
		URLs  struct {
			Next string `json:"next"`
		} `json:"urls"`
	} `json:"pagination"`
	Wants []struct {
		ID               int    `json:"id"`
		Notes            string `json:"notes"`
		DateAdded        string `json:"date_added"`
		BasicInformation struct {
			Title   string   `json:"title"`
			Year    int      `json:"year"`
			Artists []artist `json:"artists"`
		} `json:"basic_information"`
	} `json:"wants"`
}
