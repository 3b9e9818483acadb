package teamsl

import "encoding/json"

// Wire shapes of the portal's JSON. Only fields the sync reads are declared.

type searchPayload struct {
	SRName            *string `json:"srName"`
	LigaKurz          *string `json:"ligaKurz"`
	SpielStatus       string  `json:"spielStatus"`
	VereinsDelegation string  `json:"vereinsDelegation"`
	VereinsSpiele     string  `json:"vereinsSpiele"`
	Datum             string  `json:"datum"`
	Zeitraum          string  `json:"zeitraum"`
	SortBy            string  `json:"sortBy"`
	SortOrder         string  `json:"sortOrder"`
	ATS               *string `json:"ats"`
	PageFrom          int     `json:"pageFrom"`
	PageSize          int     `json:"pageSize"`
}

type searchResponse struct {
	Total   int               `json:"total"`
	Results []json.RawMessage `json:"results"`
}

type rawOpenGame struct {
	SR1Offered bool            `json:"sr1OffenAngeboten"`
	SR2Offered bool            `json:"sr2OffenAngeboten"`
	SR3Offered bool            `json:"sr3OffenAngeboten"`
	SR1        json.RawMessage `json:"sr1"`
	SR2        json.RawMessage `json:"sr2"`
	SR3        json.RawMessage `json:"sr3"`
	SP         *rawSpiel       `json:"sp"`
}

type rawSpiel struct {
	SpielplanID int64            `json:"spielplanId"`
	Spieldatum  int64            `json:"spieldatum"`
	Liga        *rawLiga         `json:"liga"`
	Heim        *rawTeamInLeague `json:"heimMannschaftLiga"`
	Gast        *rawTeamInLeague `json:"gastMannschaftLiga"`
	Spielfeld   *rawSpielfeld    `json:"spielfeld"`
	SR1Verein   *rawVerein       `json:"sr1Verein"`
	SR2Verein   *rawVerein       `json:"sr2Verein"`
	SR3Verein   *rawVerein       `json:"sr3Verein"`
}

type rawLiga struct {
	Liganame        string              `json:"liganame"`
	SRQualifikation *rawSRQualifikation `json:"srQualifikation"`
}

type rawSRQualifikation struct {
	ID              int64  `json:"srQualifikationId"`
	Bezeichnung     string `json:"bezeichnung"`
	KurzBezeichnung string `json:"kurzBezeichnung"`
}

type rawTeamInLeague struct {
	MannschaftName string         `json:"mannschaftName"`
	Mannschaft     *rawMannschaft `json:"mannschaft"`
}

type rawMannschaft struct {
	Verein *rawVerein `json:"verein"`
}

type rawSpielfeld struct {
	Bezeichnung string `json:"bezeichnung"`
	Strasse     string `json:"strasse"`
	PLZ         string `json:"plz"`
	Ort         string `json:"ort"`
}

type rawVerein struct {
	VereinID      int64  `json:"vereinId"`
	Vereinsnummer int64  `json:"vereinsnummer"`
	Vereinsname   string `json:"vereinsname"`
	VerbandID     int64  `json:"verbandId"`
	KreisID       *int64 `json:"kreisId"`
	BezirkID      *int64 `json:"bezirkId"`
}

type detailResponse struct {
	Data *rawMatchDetail `json:"data"`
}

type rawMatchDetail struct {
	SpielplanID int64           `json:"spielplanId"`
	SRList      []rawDetailSeat `json:"srList"`
}

type rawDetailSeat struct {
	Position       int            `json:"position"`
	OffenAngeboten bool           `json:"offenAngeboten"`
	Verein         *rawVerein     `json:"verein"`
	PersonData     *rawPersonData `json:"personData"`
}

type rawPersonData struct {
	Vorname  string `json:"vorname"`
	Nachname string `json:"nachname"`
}
