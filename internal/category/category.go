package category

import "strings"

type Category string

const (
	SoftwareEngineering        Category = "Software Engineering"
	FullStack                  Category = "Full Stack"
	FrontEnd                   Category = "Front End"
	BackEnd                    Category = "Back End"
	AIML                       Category = "AI/ML"
	DataScience                Category = "Data Science"
	DataEngineering            Category = "Data Engineering"
	DevOps                     Category = "DevOps"
	Mobile                     Category = "Mobile"
	Security                   Category = "Security"
	ProductManagement          Category = "Product Management"
	QuantTrading               Category = "Quant/Trading"
	Research                   Category = "Research"
	BusinessAnalyst            Category = "Business Analyst"
	DataAnalyst                Category = "Data Analyst"
	HardwareEngineering        Category = "Hardware Engineering"
	SystemsEngineering         Category = "Systems Engineering"
	CloudEngineering           Category = "Cloud Engineering"
	SiteReliability            Category = "Site Reliability Engineering"
	InformationTechnology      Category = "Information Technology"
	QualityAssurance           Category = "Quality Assurance"
	UXUIDesign                 Category = "UX/UI Design"
	SalesEngineering           Category = "Sales Engineering"
	TechnicalProgramManagement Category = "Technical Program Management"
	Other                      Category = "Other"
)

type rule struct {
	category Category
	keywords []string
}

// rules is matched top to bottom; the first category with any keyword
// contained in the lowercased role wins. Short keywords ("ai", "it", "ui",
// "pm") are plain substrings, so order decides many titles.
var rules = []rule{
	{SoftwareEngineering, []string{"software engineer", "swe", "software development", "software dev", "programmer", "coding"}},
	{FullStack, []string{"full stack", "fullstack", "full-stack"}},
	{FrontEnd, []string{"frontend", "front-end", "front end", "ui", "user interface", "react", "vue", "angular"}},
	{BackEnd, []string{"backend", "back-end", "back end", "server", "api", "database", "microservices"}},
	{AIML, []string{"ai", "artificial intelligence", "ml", "machine learning", "deep learning", "neural network", "nlp", "computer vision"}},
	{DataScience, []string{"data science", "data scientist", "predictive analytics", "statistical analysis"}},
	{DataEngineering, []string{"data engineer", "data pipeline", "data warehouse", "etl", "data platform"}},
	{DevOps, []string{"devops", "infrastructure", "ci/cd", "docker", "kubernetes", "terraform", "cloud ops"}},
	{Mobile, []string{"mobile", "ios", "android", "react native", "flutter", "swift", "kotlin"}},
	{Security, []string{"security", "cybersecurity", "cyber", "infosec", "penetration test"}},
	{ProductManagement, []string{"product manager", "product management", "pm", "product owner"}},
	{QuantTrading, []string{"quant", "quantitative", "trading", "algorithmic trading", "financial engineering"}},
	{Research, []string{"research", "researcher", "research scientist", "r&d", "research engineer"}},
	{BusinessAnalyst, []string{"business analyst", "business analysis", "business intelligence", "strategy analyst", "operations analyst"}},
	{DataAnalyst, []string{"data analyst", "data analytics", "analytics", "reporting analyst"}},
	{HardwareEngineering, []string{"hardware", "hardware engineer", "electrical", "embedded", "firmware"}},
	{SystemsEngineering, []string{"systems engineer", "systems engineering", "system engineer", "systems integration"}},
	{CloudEngineering, []string{"cloud", "aws", "azure", "gcp", "cloud engineer", "cloud architect"}},
	{SiteReliability, []string{"site reliability", "sre", "reliability engineer", "production engineer"}},
	{InformationTechnology, []string{"information technology", "it", "it support", "systems admin"}},
	{QualityAssurance, []string{"qa", "quality assurance", "test", "testing", "automation test", "sdet"}},
	{UXUIDesign, []string{"ux", "ui", "user experience", "design", "interaction design"}},
	{SalesEngineering, []string{"sales engineer", "solutions engineer", "solutions architect", "pre-sales", "presales", "customer engineer"}},
	{TechnicalProgramManagement, []string{"technical program manager", "program manager", "program management", "tpm"}},
}

// Categorize maps a role title to exactly one category. Pure.
func Categorize(role string) Category {
	if role == "" {
		return Other
	}
	lower := strings.ToLower(role)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.category
			}
		}
	}
	return Other
}

// All lists every category in table order, with Other last.
func All() []Category {
	out := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.category)
	}
	return append(out, Other)
}

// Valid reports whether c is one of All().
func Valid(c Category) bool {
	if c == Other {
		return true
	}
	for _, r := range rules {
		if r.category == c {
			return true
		}
	}
	return false
}
