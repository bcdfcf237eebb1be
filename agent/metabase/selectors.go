package metabase

import (
	"fmt"
	"strings"

	"github.com/BaSui01/uipilot/agent/memory"
)

// Logical pages and elements of the Metabase UI.
const (
	PageLogin    = "login_page"
	PageHome     = "home_page"
	PageNewMenu  = "new_menu"
	PageEditor   = "query_editor"
	PageDatabase = "database_picker"
	PageResults  = "query_results"

	ElementEmail          = "email_input"
	ElementPassword       = "password_input"
	ElementLoginButton    = "login_button"
	ElementNewButton      = "new_button"
	ElementSQLQuery       = "sql_query"
	ElementDatabasePicker = "database_picker"
	ElementEditor         = "editor"
	ElementRunButton      = "run_button"
	ElementDownload       = "download_button"
	ElementCSV            = "csv_option"
)

// DefaultSelectors are tried, in order, after whatever the memory learned.
var DefaultSelectors = memory.DefaultTable{
	PageLogin: {
		ElementEmail: {
			`input[name="username"]`,
			`input[type="email"]`,
			"role=textbox[name='Email address']",
		},
		ElementPassword: {
			`input[name="password"]`,
			`input[type="password"]`,
		},
		ElementLoginButton: {
			`button[type="submit"]`,
			"role=button[name='Sign in']",
			"text=Sign in",
		},
	},
	PageHome: {
		ElementNewButton: {
			"role=button[name='New']",
			`[data-testid="app-bar"] button[aria-label="New"]`,
			`text="New"`,
		},
	},
	PageNewMenu: {
		ElementSQLQuery: {
			"role=menuitem[name='SQL query']",
			"role=link[name='sql icon SQL query']",
			"text=SQL query",
		},
	},
	PageEditor: {
		ElementDatabasePicker: {
			`[data-testid="gui-builder-data"]`,
			"role=button[name='Select a database']",
			"text=Select a database",
		},
		ElementEditor: {
			"data-testid=native-query-editor >> textarea",
			".ace_text-input",
			".cm-content",
		},
		ElementRunButton: {
			"role=button[name='Run query']",
			`[data-testid="run-button"]`,
		},
	},
	PageResults: {
		ElementDownload: {
			"role=button[name='Download full results']",
			`[data-testid="download-button"]`,
			`[aria-label="download icon"]`,
		},
		ElementCSV: {
			"role=button[name='.csv']",
			"text=.csv",
			"text=CSV",
		},
	},
}

// DatabaseOption names the picker entry for database.
func DatabaseOption(database string) string {
	return "option:" + database
}

// databaseDefaults builds the fallback selectors for one picker entry.
func databaseDefaults(database string) memory.DefaultTable {
	name := quoteName(database)
	return memory.DefaultTable{
		PageDatabase: {
			DatabaseOption(database): {
				fmt.Sprintf("role=option[name=%s]", name),
				fmt.Sprintf("role=menuitem[name=%s]", name),
				"text=" + name,
			},
		},
	}
}

func quoteName(s string) string {
	if strings.Contains(s, "'") {
		return `"` + s + `"`
	}
	return "'" + s + "'"
}
