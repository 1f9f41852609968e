package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/chat"
	"github.com/NajehRouin/Seekras-api/config"
	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/middleware"
	"github.com/NajehRouin/Seekras-api/pkg/db/sqlite"
	"github.com/NajehRouin/Seekras-api/realtime"
	"github.com/NajehRouin/Seekras-api/util"
	"github.com/NajehRouin/Seekras-api/util/api"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	util.InitLogger(cfg.LogLevel)
	defer util.Logger.Sync()
	util.SetJWTSecret(cfg.JWTSecret)

	// Apply migrations before opening the shared handle
	if err := sqlite.Migrate(cfg.DBPath, cfg.MigrationsPath); err != nil {
		util.Logger.Fatal("failed to apply migrations", zap.Error(err))
	}
	if err := database.InitDB(cfg.DBPath); err != nil {
		util.Logger.Fatal("failed to initialize database", zap.Error(err))
	}

	hub := realtime.NewHub()
	chatSvc := chat.NewService(database.DB, hub)
	api.Init(hub, chatSvc)

	auth := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", api.WebSocketHandler)

	// Auth handlers
	mux.HandleFunc("POST /auth/signup", api.SignupHandler)
	mux.HandleFunc("POST /auth/login", api.LoginHandler)
	mux.HandleFunc("POST /auth/updatePassword", api.UpdatePasswordHandler)
	mux.HandleFunc("POST /getUserByEmail", api.GetUserByEmailHandler)
	mux.Handle("GET /currentUser", auth(api.CurrentUserHandler))

	// User handlers
	mux.Handle("GET /allUsers", auth(api.AllUsersHandler))
	mux.Handle("GET /findAllUsers", auth(api.FindAllUsersHandler))
	mux.Handle("GET /finduserById/{userID}", auth(api.FindUserByIDHandler))
	mux.Handle("GET /findUser/{userID}", auth(api.FindUserHandler))
	mux.Handle("GET /suggested", auth(api.SuggestedHandler))

	// Friend and follow handlers
	mux.Handle("GET /friends", auth(api.FriendsHandler))
	mux.Handle("GET /online-friends", auth(api.OnlineFriendsHandler))
	mux.Handle("GET /following", auth(api.FollowingHandler))
	mux.Handle("GET /followers", auth(api.FollowersHandler))
	mux.Handle("GET /followingByUser/{userID}", auth(api.FollowingByUserHandler))
	mux.Handle("GET /followersByUser/{userID}", auth(api.FollowersByUserHandler))
	mux.Handle("POST /friend-request/{targetID}", auth(api.FriendRequestHandler))
	mux.Handle("POST /accept-friend/{senderID}", auth(api.AcceptFriendHandler))
	mux.Handle("POST /cancel-friend/{friendID}", auth(api.CancelFriendHandler))

	// Post handlers
	mux.Handle("GET /posts", auth(api.GetPostsHandler))
	mux.Handle("POST /posts", auth(api.CreatePostHandler))
	mux.Handle("POST /postById", auth(api.PostByIDHandler))
	mux.Handle("GET /filterPost", auth(api.FilterPostHandler))
	mux.Handle("GET /PostCurrentUser", auth(api.PostCurrentUserHandler))
	mux.Handle("DELETE /delete-post", auth(api.DeletePostHandler))

	// Like, comment and share handlers
	mux.Handle("POST /posts/like", auth(api.LikePostHandler))
	mux.Handle("GET /likes/{postID}", auth(api.GetLikesHandler))
	mux.Handle("POST /comment-post", auth(api.CommentPostHandler))
	mux.Handle("DELETE /comment-post/{commentID}", auth(api.DeleteCommentHandler))
	mux.Handle("GET /comments/{postID}", auth(api.GetCommentsHandler))
	mux.Handle("POST /share", auth(api.SharePostHandler))
	mux.Handle("GET /users/{userID}/shared", auth(api.SharedByUserHandler))
	mux.Handle("GET /shared/{postID}", auth(api.SharesOfPostHandler))
	mux.Handle("DELETE /shared/{postID}", auth(api.UnsharePostHandler))

	// Product handlers
	mux.Handle("GET /products", auth(api.GetProductsHandler))
	mux.Handle("POST /products", auth(api.CreateProductHandler))
	mux.Handle("GET /products/{productID}", auth(api.GetProductHandler))
	mux.Handle("PUT /products/{productID}", auth(api.UpdateProductHandler))
	mux.Handle("DELETE /products/{productID}", auth(api.DeleteProductHandler))
	mux.Handle("POST /products/{productID}/view", auth(api.ViewProductHandler))
	mux.Handle("POST /products/{productID}/like", auth(api.LikeProductHandler))
	mux.Handle("POST /products/{productID}/status", auth(api.UpdateProductStatusHandler))
	mux.Handle("GET /listLikes/{productID}", auth(api.ListProductLikesHandler))
	mux.Handle("GET /productsByUser/{userID}", auth(api.ProductsByUserHandler))
	mux.Handle("GET /productsCurrentUser", auth(api.ProductsCurrentUserHandler))

	// Trip handlers
	mux.Handle("POST /create-trip", auth(api.CreateTripHandler))
	mux.Handle("GET /Alltrips", auth(api.AllTripsHandler))
	mux.Handle("POST /tripById", auth(api.TripByIDHandler))
	mux.Handle("PATCH /updateSupplyStatus", auth(api.UpdateSupplyStatusHandler))
	mux.Handle("POST /addSupply", auth(api.AddSupplyHandler))
	mux.Handle("POST /addActivity", auth(api.AddActivityHandler))

	// Direct conversation handlers
	mux.Handle("POST /conversations", auth(api.CreateConversationHandler))
	mux.Handle("GET /conversations", auth(api.ListConversationsHandler))
	mux.Handle("POST /conversations/{conversationID}/messages", auth(api.SendMessageHandler))
	mux.Handle("GET /conversations/{conversationID}/messages", auth(api.ConversationMessagesHandler))
	mux.Handle("PUT /conversations/{conversationID}/read", auth(api.MarkConversationReadHandler))

	// Product conversation handlers
	mux.Handle("POST /chatproduct", auth(api.CreateProductConversationHandler))
	mux.Handle("GET /chatproduct", auth(api.ListProductConversationsHandler))
	mux.Handle("POST /chatproduct/{conversationID}/messages", auth(api.SendMessageHandler))
	mux.Handle("GET /chatproduct/{conversationID}/messages", auth(api.ConversationMessagesHandler))
	mux.Handle("PUT /chatproduct/{conversationID}/read", auth(api.MarkConversationReadHandler))

	// Group chat handlers
	mux.Handle("POST /create-groupe", auth(api.CreateGroupHandler))
	mux.Handle("GET /Allgroupe", auth(api.AllGroupsHandler))
	mux.Handle("GET /groupe/{groupeID}/messages", auth(api.GroupMessagesHandler))
	mux.Handle("POST /groupe/{groupeID}/messages", auth(api.SendGroupMessageHandler))
	mux.Handle("PUT /groupe/{groupeID}/read", auth(api.MarkGroupReadHandler))
	mux.Handle("GET /groupeinfo/{groupeID}", auth(api.GroupInfoHandler))
	mux.Handle("PUT /updateGroupe/{groupeID}", auth(api.UpdateGroupHandler))
	mux.Handle("POST /addMemberGroupe/{groupeID}", auth(api.AddGroupMemberHandler))
	mux.Handle("DELETE /deletMembre/{groupeID}", auth(api.RemoveGroupMemberHandler))
	mux.Handle("GET /membersgroupe/{groupeID}", auth(api.GroupCandidatesHandler))

	// Notification handlers
	mux.Handle("GET /notifications", auth(api.GetNotificationsHandler))
	mux.Handle("PATCH /notifications/{notificationID}/read", auth(api.MarkNotificationReadHandler))

	// Static uploads
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(cfg.UploadsDir))))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	addr := ":" + cfg.Port
	util.Logger.Info("server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, c.Handler(mux)); err != nil {
		util.Logger.Fatal("server stopped", zap.Error(err))
	}
}
