// Package catalog describes the services clients can browse and book.
package catalog

import (
	"fmt"
	"strings"
)

// Service is a bookable service. Label is what clients see on the menu keyboard.
type Service struct {
	Key         string
	Label       string
	Description string
	Price       string
}

// Category groups services for one kind of client.
type Category struct {
	Key      string
	Label    string
	Services []Service
}

// Catalog indexes categories and services by key and by label.
type Catalog struct {
	categories []Category
	byKey      map[string]Service
	byLabel    map[string]Service
	catByLabel map[string]Category
}

// New builds a Catalog. Service keys must be unique; a label shared by several
// categories must describe the same service.
func New(categories []Category) (*Catalog, error) {
	c := &Catalog{
		categories: categories,
		byKey:      make(map[string]Service),
		byLabel:    make(map[string]Service),
		catByLabel: make(map[string]Category),
	}
	for _, cat := range categories {
		if cat.Key == "" || cat.Label == "" {
			return nil, fmt.Errorf("category must have a key and a label")
		}
		c.catByLabel[cat.Label] = cat
		for _, svc := range cat.Services {
			if svc.Key == "" || svc.Label == "" {
				return nil, fmt.Errorf("service in category %q must have a key and a label", cat.Key)
			}
			if prev, ok := c.byKey[svc.Key]; ok && prev.Label != svc.Label {
				return nil, fmt.Errorf("duplicate service key %q", svc.Key)
			}
			c.byKey[svc.Key] = svc
			c.byLabel[svc.Label] = svc
		}
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultCategories)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in catalog: %v", err))
	}
	return c
}

// Categories returns all categories in display order.
func (c *Catalog) Categories() []Category { return c.categories }

// CategoryByLabel finds a category by its menu label.
func (c *Catalog) CategoryByLabel(label string) (Category, bool) {
	cat, ok := c.catByLabel[strings.TrimSpace(label)]
	return cat, ok
}

// ServiceByLabel finds a service by its menu label.
func (c *Catalog) ServiceByLabel(label string) (Service, bool) {
	svc, ok := c.byLabel[strings.TrimSpace(label)]
	return svc, ok
}

// ServiceByKey finds a service by key.
func (c *Catalog) ServiceByKey(key string) (Service, bool) {
	svc, ok := c.byKey[key]
	return svc, ok
}

// ServiceNames returns the labels of every service once, in catalog order.
func (c *Catalog) ServiceNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, cat := range c.categories {
		for _, svc := range cat.Services {
			if !seen[svc.Label] {
				seen[svc.Label] = true
				names = append(names, svc.Label)
			}
		}
	}
	return names
}

// Detail renders the service description shown before booking.
func (s Service) Detail() string {
	var b strings.Builder
	b.WriteString(s.Label)
	if s.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(s.Description)
	}
	if s.Price != "" {
		b.WriteString("\n\nPrice: ")
		b.WriteString(s.Price)
	}
	return b.String()
}

var (
	consultation = Service{
		Key: "consult", Label: "💬 Legal consultation",
		Description: "Oral or written consultation on any legal matter, including contract, tax and labour questions.",
		Price:       "from 2 000 ₽",
	}
	subscription = Service{
		Key: "subscr", Label: "📦 Subscription service",
		Description: "Ongoing legal support for your business on a monthly plan.",
		Price:       "from 15 000 ₽ per month",
	}
	litigation = Service{
		Key: "court", Label: "🏛️ Court representation",
		Description: "Full support in court from the statement of claim to the enforcement of the judgement.",
		Price:       "from 30 000 ₽",
	}
	registerIE = Service{
		Key: "reg_ie", Label: "📝 Sole proprietor registration",
		Description: "Preparation of documents and registration of an individual entrepreneur.",
		Price:       "from 3 000 ₽",
	}
)

var defaultCategories = []Category{
	{
		Key: "legal", Label: "👔 Legal entities",
		Services: []Service{
			{Key: "reg_llc", Label: "📝 LLC registration", Description: "Turnkey registration of a limited liability company.", Price: "from 5 000 ₽"},
			{Key: "account", Label: "💳 Bank account opening", Description: "Help choosing a bank and opening a settlement account.", Price: "free with registration"},
			{Key: "bookkeep", Label: "📊 Bookkeeping", Description: "Accounting, payroll and tax reporting.", Price: "from 8 000 ₽ per month"},
			{Key: "charter", Label: "📄 Charter amendments", Description: "Changes to the charter and the state register of legal entities.", Price: "from 4 000 ₽"},
			{Key: "pretrial", Label: "⚖️ Pre-trial work", Description: "Claims, demand letters and negotiation with counterparties.", Price: "from 5 000 ₽"},
			litigation,
			{Key: "contract", Label: "📋 Contract drafting", Description: "Drafting and legal review of contracts.", Price: "from 3 000 ₽"},
			consultation,
			subscription,
			{Key: "audit", Label: "🔍 Business analysis", Description: "Legal audit and optimisation of business processes.", Price: "on request"},
		},
	},
	{
		Key: "entre", Label: "💼 Entrepreneurs",
		Services: []Service{
			registerIE,
			{Key: "ie_change", Label: "📄 Register changes", Description: "Changes to the state register of individual entrepreneurs.", Price: "from 2 500 ₽"},
			{Key: "ie_close", Label: "🗑️ Closing a sole proprietorship", Description: "Deregistration of an individual entrepreneur.", Price: "from 3 000 ₽"},
			{Key: "tax", Label: "📊 Tax reports", Description: "Preparation and filing of tax reports.", Price: "from 2 000 ₽"},
			litigation,
			subscription,
		},
	},
	{
		Key: "person", Label: "👤 Individuals",
		Services: []Service{
			consultation,
			{Key: "claim", Label: "📝 Statements of claim", Description: "Drafting statements of claim and representation in court.", Price: "from 5 000 ₽"},
			{Key: "ndfl", Label: "📊 Tax declaration 3-NDFL", Description: "Declarations for tax deductions on property, treatment or education.", Price: "from 1 500 ₽"},
			registerIE,
			{Key: "consumer", Label: "🛡️ Consumer protection", Description: "Claims against sellers and service providers.", Price: "from 3 000 ₽"},
			{Key: "realty", Label: "🏠 Real estate deals", Description: "Checking and supporting purchase, sale and lease deals.", Price: "from 10 000 ₽"},
			{Key: "online", Label: "💻 Online consultation", Description: "Video consultation with a lawyer.", Price: "from 1 500 ₽"},
		},
	},
}
