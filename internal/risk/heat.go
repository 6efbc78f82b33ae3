package risk

import "github.com/jthadison/bmad4-wyck-vol-sub011/models"

// PortfolioHeat sums the risk allocated across open campaigns, as % of
// account equity.
func PortfolioHeat(campaigns []*models.Campaign) float64 {
	var heat float64
	for _, c := range campaigns {
		if c.State == models.CampaignActive {
			heat += c.RiskPct
		}
	}
	return heat
}
