package xtream

// Wire shapes of player_api.php. Ids are strings and timestamps are Unix
// seconds in string form, as Xtream-Codes servers emit them.

type userInfo struct {
	Username             string   `json:"username"`
	Password             string   `json:"password"`
	Message              string   `json:"message"`
	Auth                 int      `json:"auth"`
	Status               string   `json:"status"`
	ExpDate              *string  `json:"exp_date"`
	IsTrial              string   `json:"is_trial"`
	ActiveCons           string   `json:"active_cons"`
	CreatedAt            string   `json:"created_at"`
	MaxConnections       string   `json:"max_connections"`
	AllowedOutputFormats []string `json:"allowed_output_formats"`
}

type serverInfo struct {
	URL            string `json:"url"`
	Port           string `json:"port"`
	HTTPSPort      string `json:"https_port"`
	ServerProtocol string `json:"server_protocol"`
	RTMPPort       string `json:"rtmp_port"`
	Timezone       string `json:"timezone"`
	TimestampNow   int64  `json:"timestamp_now"`
	TimeNow        string `json:"time_now"`
	ServerName     string `json:"server_name,omitempty"`
}

type loginResponse struct {
	UserInfo   userInfo   `json:"user_info"`
	ServerInfo serverInfo `json:"server_info"`
}

// authFailure is the exact body returned for every failed authentication.
type authFailure struct {
	UserInfo struct {
		Auth int `json:"auth"`
	} `json:"user_info"`
}

type category struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	ParentID     string `json:"parent_id"`
}

type liveStream struct {
	Num               int    `json:"num"`
	Name              string `json:"name"`
	StreamType        string `json:"stream_type"`
	StreamID          string `json:"stream_id"`
	StreamIcon        string `json:"stream_icon"`
	EPGChannelID      string `json:"epg_channel_id"`
	Added             string `json:"added"`
	CategoryID        string `json:"category_id"`
	CustomSID         string `json:"custom_sid"`
	TVArchive         int    `json:"tv_archive"`
	DirectSource      string `json:"direct_source"`
	TVArchiveDuration int    `json:"tv_archive_duration"`
}

type vodStream struct {
	Num                int     `json:"num"`
	Name               string  `json:"name"`
	StreamType         string  `json:"stream_type"`
	StreamID           string  `json:"stream_id"`
	StreamIcon         string  `json:"stream_icon"`
	Rating             string  `json:"rating"`
	Rating5Based       float64 `json:"rating_5based"`
	Added              string  `json:"added"`
	CategoryID         string  `json:"category_id"`
	ContainerExtension string  `json:"container_extension"`
	CustomSID          string  `json:"custom_sid"`
	DirectSource       string  `json:"direct_source"`
}

type vodInfo struct {
	MovieImage   string   `json:"movie_image"`
	BackdropPath []string `json:"backdrop_path"`
	TMDBID       string   `json:"tmdb_id"`
	Name         string   `json:"name"`
	Plot         string   `json:"plot"`
	Cast         string   `json:"cast"`
	Director     string   `json:"director"`
	Genre        string   `json:"genre"`
	ReleaseDate  string   `json:"releasedate"`
	Rating       string   `json:"rating"`
	Duration     string   `json:"duration"`
}

type movieData struct {
	StreamID           string `json:"stream_id"`
	Name               string `json:"name"`
	Added              string `json:"added"`
	CategoryID         string `json:"category_id"`
	ContainerExtension string `json:"container_extension"`
	CustomSID          string `json:"custom_sid"`
	DirectSource       string `json:"direct_source"`
}

type vodInfoResponse struct {
	Info      any `json:"info"`
	MovieData any `json:"movie_data"`
}

type seriesItem struct {
	Num            int      `json:"num"`
	Name           string   `json:"name"`
	SeriesID       string   `json:"series_id"`
	Cover          string   `json:"cover"`
	Plot           string   `json:"plot"`
	Cast           string   `json:"cast"`
	Director       string   `json:"director"`
	Genre          string   `json:"genre"`
	ReleaseDate    string   `json:"releaseDate"`
	LastModified   string   `json:"last_modified"`
	Rating         string   `json:"rating"`
	Rating5Based   float64  `json:"rating_5based"`
	BackdropPath   []string `json:"backdrop_path"`
	YoutubeTrailer string   `json:"youtube_trailer"`
	EpisodeRunTime string   `json:"episode_run_time"`
	CategoryID     string   `json:"category_id"`
}

type season struct {
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episode_count"`
}

type episodeInfo struct {
	Plot       string `json:"plot"`
	Duration   string `json:"duration"`
	MovieImage string `json:"movie_image"`
}

type episode struct {
	ID                 string      `json:"id"`
	EpisodeNum         int         `json:"episode_num"`
	Title              string      `json:"title"`
	ContainerExtension string      `json:"container_extension"`
	Info               episodeInfo `json:"info"`
	Season             int         `json:"season"`
	CustomSID          string      `json:"custom_sid"`
	Added              string      `json:"added"`
	DirectSource       string      `json:"direct_source"`
}

type seriesInfoResponse struct {
	Seasons  []season             `json:"seasons"`
	Info     any                  `json:"info"`
	Episodes map[string][]episode `json:"episodes"`
}

type epgListing struct {
	ID             string `json:"id"`
	EPGID          string `json:"epg_id"`
	Title          string `json:"title"`
	Lang           string `json:"lang"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Description    string `json:"description"`
	ChannelID      string `json:"channel_id"`
	StartTimestamp string `json:"start_timestamp"`
	StopTimestamp  string `json:"stop_timestamp"`
	NowPlaying     *int   `json:"now_playing,omitempty"`
	HasArchive     *int   `json:"has_archive,omitempty"`
}

type epgResponse struct {
	Listings []epgListing `json:"epg_listings"`
}
