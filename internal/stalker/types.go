package stalker

// envelope wraps every portal response.
type envelope struct {
	JS any `json:"js"`
}

type token struct {
	Token string `json:"token"`
}

type profile struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Login           string `json:"login"`
	MAC             string `json:"mac"`
	Status          int    `json:"status"`
	ExpDate         string `json:"exp_date"`
	Msg             string `json:"msg,omitempty"`
	MaxConnections  int    `json:"max_connections"`
	DefaultTimezone string `json:"default_timezone"`
	Locale          string `json:"locale"`
}

type genre struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Alias    string `json:"alias"`
	Censored int    `json:"censored"`
}

// page is the paginated list shape of itv, vod and series.
type page struct {
	TotalItems   int `json:"total_items"`
	MaxPageItems int `json:"max_page_items"`
	SelectedItem int `json:"selected_item"`
	CurPage      int `json:"cur_page"`
	Data         any `json:"data"`
}

type channel struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Number         string `json:"number"`
	Cmd            string `json:"cmd"`
	Logo           string `json:"logo"`
	TVGenreID      string `json:"tv_genre_id"`
	XMLTVID        string `json:"xmltv_id"`
	UseHTTPTmpLink string `json:"use_http_tmp_link"`
	Censored       int    `json:"censored"`
	Archive        int    `json:"archive"`
	ArchiveRange   int    `json:"tv_archive_duration"`
	Status         int    `json:"status"`
}

type link struct {
	ID  string `json:"id"`
	Cmd string `json:"cmd"`
}

type program struct {
	ID             string `json:"id"`
	ChID           string `json:"ch_id"`
	Name           string `json:"name"`
	Descr          string `json:"descr"`
	Time           string `json:"time"`
	TimeTo         string `json:"time_to"`
	Duration       int64  `json:"duration"`
	StartTimestamp int64  `json:"start_timestamp"`
	StopTimestamp  int64  `json:"stop_timestamp"`
	TTime          string `json:"t_time"`
	TTimeTo        string `json:"t_time_to"`
	MarkArchive    int    `json:"mark_archive"`
}

type movie struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Director      string `json:"director"`
	Actors        string `json:"actors"`
	Year          string `json:"year"`
	RatingIMDB    string `json:"rating_imdb"`
	ScreenshotURI string `json:"screenshot_uri"`
	GenresStr     string `json:"genres_str"`
	Time          string `json:"time"`
	CategoryID    string `json:"category_id"`
	IsSeries      int    `json:"is_series"`
	Cmd           string `json:"cmd"`
}

type episodeItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SeriesNumber  int    `json:"series_number"`
	SeasonNumber  int    `json:"season_number"`
	Description   string `json:"description"`
	ScreenshotURI string `json:"screenshot_uri"`
	Time          string `json:"time"`
	Cmd           string `json:"cmd"`
}
